package certificate

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// LayoutVersion identifies the built-in layout table.
const LayoutVersion = "v1"

// TextBlock is one centered line. Y is a fraction of template height; sizes and
// spacing are template pixels and get multiplied by Layout.Scale.
type TextBlock struct {
	Text          string  `mapstructure:"text"`
	Y             float64 `mapstructure:"y"`
	Size          float64 `mapstructure:"size"`
	Bold          bool    `mapstructure:"bold"`
	LetterSpacing float64 `mapstructure:"letter_spacing"`
	Color         string  `mapstructure:"color"`
}

// NameBlock holds the auto-shrinking recipient name. MaxWidth is a fraction of
// template width.
type NameBlock struct {
	Y        float64 `mapstructure:"y"`
	MaxSize  float64 `mapstructure:"max_size"`
	MinSize  float64 `mapstructure:"min_size"`
	Step     float64 `mapstructure:"step"`
	MaxWidth float64 `mapstructure:"max_width"`
	Bold     bool    `mapstructure:"bold"`
	Color    string  `mapstructure:"color"`
}

type RuleBlock struct {
	Y         float64 `mapstructure:"y"`
	Length    float64 `mapstructure:"length"`
	Thickness float64 `mapstructure:"thickness"`
	Color     string  `mapstructure:"color"`
}

// SignatureBlock places two signature slots on a shared line. AnchorsX are
// fractions of template width; offsets are template pixels measured from the line.
type SignatureBlock struct {
	Y             float64   `mapstructure:"y"`
	AnchorsX      []float64 `mapstructure:"anchors_x"`
	MaxWidth      float64   `mapstructure:"max_width"`
	MaxHeight     float64   `mapstructure:"max_height"`
	Gap           float64   `mapstructure:"gap"`
	RuleLength    float64   `mapstructure:"rule_length"`
	RuleThickness float64   `mapstructure:"rule_thickness"`
	NameOffset    float64   `mapstructure:"name_offset"`
	NameSize      float64   `mapstructure:"name_size"`
	RoleOffset    float64   `mapstructure:"role_offset"`
	RoleSize      float64   `mapstructure:"role_size"`
	Color         string    `mapstructure:"color"`
}

// Layout is the declarative placement table for a certificate template.
// Body and skill text may use {issuer}, {date}, {skill} and {name}.
type Layout struct {
	Version    string         `mapstructure:"version"`
	Scale      float64        `mapstructure:"scale"`
	Title      TextBlock      `mapstructure:"title"`
	Caption    TextBlock      `mapstructure:"caption"`
	Name       NameBlock      `mapstructure:"name"`
	NameRule   RuleBlock      `mapstructure:"name_rule"`
	Body       []TextBlock    `mapstructure:"body"`
	Skill      TextBlock      `mapstructure:"skill"`
	Signatures SignatureBlock `mapstructure:"signatures"`
}

const ink = "#3B2416"

func DefaultLayout() Layout {
	return Layout{
		Version: LayoutVersion,
		Scale:   2,
		Title: TextBlock{
			Text: "CERTIFICATE", Y: 0.18, Size: 64, Bold: true, LetterSpacing: 12, Color: ink,
		},
		Caption: TextBlock{
			Text: "THIS CERTIFICATE IS PROUDLY PRESENTED TO", Y: 0.29, Size: 20, LetterSpacing: 3, Color: ink,
		},
		Name: NameBlock{
			Y: 0.41, MaxSize: 72, MinSize: 28, Step: 2, MaxWidth: 0.7, Bold: true, Color: ink,
		},
		NameRule: RuleBlock{Y: 0.44, Length: 520, Thickness: 2, Color: ink},
		Body: []TextBlock{
			{Text: "has successfully completed the training program held by {issuer}", Y: 0.52, Size: 22, Color: ink},
			{Text: "and was awarded this certificate on {date}", Y: 0.59, Size: 22, Color: ink},
		},
		Skill: TextBlock{Text: "{skill}", Y: 0.67, Size: 30, Bold: true, Color: ink},
		Signatures: SignatureBlock{
			Y:             0.86,
			AnchorsX:      []float64{0.25, 0.75},
			MaxWidth:      220,
			MaxHeight:     90,
			Gap:           6,
			RuleLength:    240,
			RuleThickness: 2,
			NameOffset:    28,
			NameSize:      20,
			RoleOffset:    52,
			RoleSize:      16,
			Color:         ink,
		},
	}
}

// LoadLayout overlays a YAML/JSON file on DefaultLayout. An empty path returns
// the default table.
func LoadLayout(path string) (Layout, error) {
	layout := DefaultLayout()
	if path == "" {
		return layout, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Layout{}, fmt.Errorf("read layout %s: %w", path, err)
	}
	if err := v.Unmarshal(&layout); err != nil {
		return Layout{}, fmt.Errorf("decode layout %s: %w", path, err)
	}
	if err := layout.Validate(); err != nil {
		return Layout{}, fmt.Errorf("layout %s: %w", path, err)
	}
	return layout, nil
}

// Validate checks that every fraction lies in [0,1] and every size is usable.
func (l Layout) Validate() error {
	var errs []error
	fraction := func(name string, v float64) {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("%s must be within [0,1], got %v", name, v))
		}
	}
	positive := func(name string, v float64) {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", name, v))
		}
	}
	colour := func(name, v string) {
		if _, err := parseHexColor(v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	text := func(name string, b TextBlock) {
		fraction(name+".y", b.Y)
		positive(name+".size", b.Size)
		colour(name+".color", b.Color)
	}

	if l.Scale < 1 {
		errs = append(errs, fmt.Errorf("scale must be at least 1, got %v", l.Scale))
	}
	text("title", l.Title)
	text("caption", l.Caption)
	for i, b := range l.Body {
		text(fmt.Sprintf("body[%d]", i), b)
	}
	text("skill", l.Skill)

	fraction("name.y", l.Name.Y)
	fraction("name.max_width", l.Name.MaxWidth)
	positive("name.min_size", l.Name.MinSize)
	positive("name.step", l.Name.Step)
	if l.Name.MaxSize < l.Name.MinSize {
		errs = append(errs, errors.New("name.max_size must not be below name.min_size"))
	}
	colour("name.color", l.Name.Color)

	fraction("name_rule.y", l.NameRule.Y)
	positive("name_rule.length", l.NameRule.Length)
	positive("name_rule.thickness", l.NameRule.Thickness)
	colour("name_rule.color", l.NameRule.Color)

	s := l.Signatures
	fraction("signatures.y", s.Y)
	if len(s.AnchorsX) != 2 {
		errs = append(errs, fmt.Errorf("signatures.anchors_x needs exactly 2 entries, got %d", len(s.AnchorsX)))
	}
	for i, x := range s.AnchorsX {
		fraction(fmt.Sprintf("signatures.anchors_x[%d]", i), x)
	}
	positive("signatures.max_width", s.MaxWidth)
	positive("signatures.max_height", s.MaxHeight)
	positive("signatures.rule_length", s.RuleLength)
	positive("signatures.rule_thickness", s.RuleThickness)
	positive("signatures.name_size", s.NameSize)
	positive("signatures.role_size", s.RoleSize)
	colour("signatures.color", s.Color)

	return errors.Join(errs...)
}

func parseHexColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q, want #RRGGBB", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xFF}, nil
}
