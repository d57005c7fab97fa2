package certificate

import (
	"brz/apperrors"
	"brz/logger"
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	_ "golang.org/x/image/webp"
)

// Signature is one signer slot. An empty or undecodable image leaves the slot
// with only its rule, name and role.
type Signature struct {
	Image []byte
	Name  string
	Role  string
}

// Input is everything a single render needs.
type Input struct {
	Template       []byte
	RecipientName  string
	SkillLabel     string
	CompletionDate string
	Issuer         string
	Signatures     [2]Signature
}

// Renderer draws certificates from a template and a Layout. It holds only
// immutable state and is safe for concurrent use.
type Renderer struct {
	layout  Layout
	regular *opentype.Font
	bold    *opentype.Font
	colors  map[string]color.RGBA
	log     logger.Logger
}

func NewRenderer(layout Layout, log logger.Logger) (*Renderer, error) {
	if err := layout.Validate(); err != nil {
		return nil, apperrors.Configuration("invalid certificate layout", err)
	}
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	r := &Renderer{layout: layout, regular: regular, bold: bold, colors: map[string]color.RGBA{}, log: log}
	for _, c := range layout.colors() {
		rgba, _ := parseHexColor(c)
		r.colors[c] = rgba
	}
	return r, nil
}

func (r *Renderer) Layout() Layout {
	return r.layout
}

// Render draws the certificate at Layout.Scale times the template resolution
// and returns PNG bytes. Identical inputs produce identical bytes.
func (r *Renderer) Render(in Input) ([]byte, error) {
	if len(in.Template) == 0 {
		return nil, apperrors.Configuration("certificate template is empty", nil)
	}
	tmpl, _, err := image.Decode(bytes.NewReader(in.Template))
	if err != nil {
		return nil, apperrors.Configuration("certificate template cannot be decoded", err)
	}

	c := newCanvas(r, tmpl)
	defer c.close()

	l := r.layout
	replacer := strings.NewReplacer(
		"{issuer}", in.Issuer,
		"{date}", in.CompletionDate,
		"{skill}", in.SkillLabel,
		"{name}", in.RecipientName,
	)

	for _, block := range []TextBlock{l.Title, l.Caption} {
		if err := c.text(block, block.Text); err != nil {
			return nil, err
		}
	}
	if err := c.name(l.Name, in.RecipientName); err != nil {
		return nil, err
	}
	c.rule(0.5, l.NameRule.Y, l.NameRule.Length, l.NameRule.Thickness, l.NameRule.Color)
	for _, block := range l.Body {
		if err := c.text(block, replacer.Replace(block.Text)); err != nil {
			return nil, err
		}
	}
	if err := c.text(l.Skill, replacer.Replace(l.Skill.Text)); err != nil {
		return nil, err
	}

	for i, sig := range in.Signatures {
		if err := c.signature(l.Signatures, i, sig); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, c.img); err != nil {
		return nil, fmt.Errorf("encode certificate: %w", err)
	}
	return buf.Bytes(), nil
}

func (l Layout) colors() []string {
	out := []string{l.Title.Color, l.Caption.Color, l.Name.Color, l.NameRule.Color, l.Skill.Color, l.Signatures.Color}
	for _, b := range l.Body {
		out = append(out, b.Color)
	}
	return out
}

// FitWithin scales w×h to the largest size inside maxW×maxH keeping aspect ratio.
func FitWithin(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 || maxW <= 0 || maxH <= 0 {
		return 0, 0
	}
	scale := min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	dw := max(1, int(float64(w)*scale+0.5))
	dh := max(1, int(float64(h)*scale+0.5))
	return min(dw, maxW), min(dh, maxH)
}

func scaleInto(dst draw.Image, rect image.Rectangle, src image.Image, op draw.Op) {
	draw.CatmullRom.Scale(dst, rect, src, src.Bounds(), op, nil)
}
