package cmd

import (
	"brz/certificate"
	"brz/config"
	"brz/database"
	"brz/server"
	"brz/services"
	"brz/storage"
	"brz/tracing"
	"brz/utils"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server and the reminder scheduler",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log := bootstrap()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	tracer, err := tracing.NewProvider(cfg.TracingOn, nil)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tracer.Shutdown(shutdownCtx)
	}()

	db, err := database.ConnectDb(cfg.Database)
	if err != nil {
		return err
	}

	blobs, err := openBlobStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	layout, err := certificate.LoadLayout(cfg.Certificate.LayoutFile)
	if err != nil {
		return err
	}
	renderer, err := certificate.NewRenderer(layout, log)
	if err != nil {
		return err
	}

	sinks, err := notificationSinks(ctx, cfg)
	if err != nil {
		return err
	}

	svc := server.NewServices(cfg, db, blobs, renderer, log, sinks...)
	if err := svc.Reminders.Start(cfg.Reminder.Cron); err != nil {
		return fmt.Errorf("start reminder scheduler: %w", err)
	}

	app := server.NewApp(cfg, svc, log)

	errCh := make(chan error, 1)
	go func() {
		log.Info("server is running", map[string]interface{}{"port": cfg.Port, "version": version})
		errCh <- app.Listen(":" + cfg.Port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		svc.Reminders.Stop()
		return err
	case sig := <-quit:
		log.Info("shutting down", map[string]interface{}{"signal": sig.String()})
	}

	svc.Reminders.Stop()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error("server shutdown failed", map[string]interface{}{"error": err})
	}
	svc.Notifications.Wait()
	return nil
}

func openBlobStore(ctx context.Context, cfg config.StorageConfig) (storage.BlobStore, error) {
	switch cfg.Driver {
	case "local", "":
		return storage.NewLocalBlobStore(cfg.Root, cfg.PublicPrefix), nil
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET is required for the s3 storage driver")
		}
		return storage.NewS3BlobStore(ctx, cfg.S3Region, cfg.S3Bucket, cfg.S3PublicBaseURL)
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q", cfg.Driver)
	}
}

// notificationSinks builds the optional outbound channels. The database inbox
// is always written by the notification service itself.
func notificationSinks(ctx context.Context, cfg *config.Config) ([]services.Sink, error) {
	var sinks []services.Sink

	var mailer utils.Mailer
	switch cfg.Mail.Provider {
	case "none", "":
	case "sendgrid":
		if cfg.Mail.SendGridAPIKey == "" {
			return nil, fmt.Errorf("SENDGRID_API_KEY is required for the sendgrid mail provider")
		}
		mailer = utils.NewSendGridMailer(cfg.Mail.SendGridAPIKey, cfg.Mail.From)
	case "ses":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Mail.SESRegion))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		mailer = utils.NewSESMailer(ses.NewFromConfig(awsCfg), cfg.Mail.From)
	default:
		return nil, fmt.Errorf("unsupported MAIL_PROVIDER %q", cfg.Mail.Provider)
	}
	if mailer != nil {
		sinks = append(sinks, services.NewEmailSink(mailer, cfg.Mail.OperatorEmails))
	}

	if cfg.WebhookURL != "" {
		sinks = append(sinks, services.NewWebhookSink(utils.NewWebhookClient(cfg.WebhookURL, 10*time.Second)))
	}
	return sinks, nil
}
