package cmd

import (
	"brz/certificate"
	"brz/logger"
	"brz/services"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

type renderOptions struct {
	template   string
	layout     string
	name       string
	program    string
	issuer     string
	out        string
	signatureA string
	signatureB string
	signerA    string
	signerB    string
}

var renderOpts renderOptions

var renderCmd = &cobra.Command{
	Use:   "render-sample",
	Short: "Render a certificate preview from local files",
	Long:  `Renders a certificate without a database or blob store, for designing templates and layout files.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return renderSample(renderOpts, logger.NewStructured("info", "console"))
	},
}

func init() {
	f := renderCmd.Flags()
	f.StringVar(&renderOpts.template, "template", "assets/certificate-template.png", "template image (PNG, JPEG or WebP)")
	f.StringVar(&renderOpts.layout, "layout", "", "optional YAML/JSON layout override")
	f.StringVar(&renderOpts.name, "name", "Jane Doe", "recipient name")
	f.StringVar(&renderOpts.program, "program", "Basic Barista Class", "skill label printed on the certificate")
	f.StringVar(&renderOpts.issuer, "issuer", "Brewzone Coffee Academy", "issuing organization")
	f.StringVar(&renderOpts.out, "out", "certificate-sample.png", "output PNG path")
	f.StringVar(&renderOpts.signatureA, "signature-a", "", "left signature image")
	f.StringVar(&renderOpts.signatureB, "signature-b", "", "right signature image")
	f.StringVar(&renderOpts.signerA, "signer-a", "Head Barista", "left signer name")
	f.StringVar(&renderOpts.signerB, "signer-b", "Academy Director", "right signer name")
	rootCmd.AddCommand(renderCmd)
}

func renderSample(opts renderOptions, log logger.Logger) error {
	layout, err := certificate.LoadLayout(opts.layout)
	if err != nil {
		return err
	}
	renderer, err := certificate.NewRenderer(layout, log)
	if err != nil {
		return err
	}

	tmpl, err := os.ReadFile(opts.template)
	if err != nil {
		return fmt.Errorf("read template: %w", err)
	}

	in := certificate.Input{
		Template:       tmpl,
		RecipientName:  opts.name,
		SkillLabel:     opts.program,
		CompletionDate: time.Now().Format(services.CompletionDateLayout),
		Issuer:         opts.issuer,
	}
	for i, sig := range []struct{ path, name string }{{opts.signatureA, opts.signerA}, {opts.signatureB, opts.signerB}} {
		in.Signatures[i].Name = sig.name
		if sig.path == "" {
			continue
		}
		if in.Signatures[i].Image, err = os.ReadFile(sig.path); err != nil {
			return fmt.Errorf("read signature: %w", err)
		}
	}

	png, err := renderer.Render(in)
	if err != nil {
		return err
	}
	if err := os.WriteFile(opts.out, png, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.out, err)
	}
	log.Info("sample certificate written", map[string]interface{}{"path": opts.out, "bytes": len(png)})
	return nil
}
