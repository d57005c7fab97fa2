package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Port      string
	JWTKey    string
	LogLevel  string
	LogFormat string

	Database    DatabaseConfig
	Storage     StorageConfig
	Upload      UploadConfig
	Certificate CertificateConfig
	Mail        MailConfig
	Reminder    ReminderConfig
	WebhookURL  string
	VerifyTTL   time.Duration
	TracingOn   bool
}

type DatabaseConfig struct {
	Driver   string // postgres, mysql or sqlite
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	Path     string // sqlite only
}

type StorageConfig struct {
	Driver          string // local or s3
	Root            string
	PublicPrefix    string
	S3Bucket        string
	S3Region        string
	S3PublicBaseURL string
}

type UploadConfig struct {
	MaxBytes      int64
	PaymentFolder string
}

type CertificateConfig struct {
	TemplatePath   string
	OutputFolder   string
	Issuer         string
	LayoutFile     string
	SignerAName    string
	SignerARole    string
	SignerBName    string
	SignerBRole    string
	SignatureAPath string
	SignatureBPath string
	RenderTimeout  time.Duration
}

type MailConfig struct {
	Provider       string // none, sendgrid or ses
	SendGridAPIKey string
	SESRegion      string
	From           string
	OperatorEmails []string
}

type ReminderConfig struct {
	Cron      string
	StaleDays int
}

// AppConfig is a global variable to access configuration
var AppConfig *Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "3000")
	v.SetDefault("JWT_SECRET_KEY", "defaultSecret")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "brz")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_PATH", "brz.db")

	v.SetDefault("STORAGE_DRIVER", "local")
	v.SetDefault("STORAGE_ROOT", "./public/uploads")
	v.SetDefault("STORAGE_PUBLIC_PREFIX", "/uploads")

	v.SetDefault("UPLOAD_MAX_BYTES", 5<<20)
	v.SetDefault("PAYMENT_PROOF_FOLDER", "payments")

	v.SetDefault("CERT_TEMPLATE_PATH", "assets/certificate-template.png")
	v.SetDefault("CERT_OUTPUT_FOLDER", "certificates")
	v.SetDefault("CERT_ISSUER", "Brewzone Coffee Academy")
	v.SetDefault("CERT_SIGNER_A_NAME", "Head Barista")
	v.SetDefault("CERT_SIGNER_A_ROLE", "Instructor")
	v.SetDefault("CERT_SIGNER_B_NAME", "Academy Director")
	v.SetDefault("CERT_SIGNER_B_ROLE", "Director")
	v.SetDefault("CERT_RENDER_TIMEOUT", "30s")

	v.SetDefault("VERIFY_CACHE_TTL", "10m")
	v.SetDefault("MAIL_PROVIDER", "none")
	v.SetDefault("MAIL_FROM", "no-reply@brewzone.local")
	v.SetDefault("SES_REGION", "us-east-1")
	v.SetDefault("REMINDER_CRON", "0 9 * * *")
	v.SetDefault("REMINDER_STALE_DAYS", 3)
	v.SetDefault("TRACING_ENABLED", false)
}

// LoadConfig initializes configuration from environment variables or defaults
func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found. Using system environment variables.")
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	AppConfig = fromViper(v)

	if AppConfig.JWTKey == "defaultSecret" {
		log.Println("Warning: Using default JWT_SECRET_KEY. Update it in your environment.")
	}
	return AppConfig
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Port:      v.GetString("PORT"),
		JWTKey:    v.GetString("JWT_SECRET_KEY"),
		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: v.GetString("LOG_FORMAT"),

		Database: DatabaseConfig{
			Driver:   strings.ToLower(v.GetString("DB_DRIVER")),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
			Path:     v.GetString("DB_PATH"),
		},
		Storage: StorageConfig{
			Driver:          strings.ToLower(v.GetString("STORAGE_DRIVER")),
			Root:            v.GetString("STORAGE_ROOT"),
			PublicPrefix:    v.GetString("STORAGE_PUBLIC_PREFIX"),
			S3Bucket:        v.GetString("S3_BUCKET"),
			S3Region:        v.GetString("S3_REGION"),
			S3PublicBaseURL: v.GetString("S3_PUBLIC_BASE_URL"),
		},
		Upload: UploadConfig{
			MaxBytes:      v.GetInt64("UPLOAD_MAX_BYTES"),
			PaymentFolder: v.GetString("PAYMENT_PROOF_FOLDER"),
		},
		Certificate: CertificateConfig{
			TemplatePath:   v.GetString("CERT_TEMPLATE_PATH"),
			OutputFolder:   v.GetString("CERT_OUTPUT_FOLDER"),
			Issuer:         v.GetString("CERT_ISSUER"),
			LayoutFile:     v.GetString("CERT_LAYOUT_FILE"),
			SignerAName:    v.GetString("CERT_SIGNER_A_NAME"),
			SignerARole:    v.GetString("CERT_SIGNER_A_ROLE"),
			SignerBName:    v.GetString("CERT_SIGNER_B_NAME"),
			SignerBRole:    v.GetString("CERT_SIGNER_B_ROLE"),
			SignatureAPath: v.GetString("CERT_SIGNATURE_A_PATH"),
			SignatureBPath: v.GetString("CERT_SIGNATURE_B_PATH"),
			RenderTimeout:  v.GetDuration("CERT_RENDER_TIMEOUT"),
		},
		Mail: MailConfig{
			Provider:       strings.ToLower(v.GetString("MAIL_PROVIDER")),
			SendGridAPIKey: v.GetString("SENDGRID_API_KEY"),
			SESRegion:      v.GetString("SES_REGION"),
			From:           v.GetString("MAIL_FROM"),
			OperatorEmails: splitList(v.GetString("OPERATOR_EMAILS")),
		},
		Reminder: ReminderConfig{
			Cron:      v.GetString("REMINDER_CRON"),
			StaleDays: v.GetInt("REMINDER_STALE_DAYS"),
		},
		WebhookURL: v.GetString("NOTIFICATION_WEBHOOK_URL"),
		VerifyTTL:  v.GetDuration("VERIFY_CACHE_TTL"),
		TracingOn:  v.GetBool("TRACING_ENABLED"),
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
