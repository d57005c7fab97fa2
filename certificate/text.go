package certificate

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// canvas is the supersampled drawing surface for one render.
type canvas struct {
	r     *Renderer
	img   *image.RGBA
	w, h  float64
	scale float64
	faces []font.Face
}

func newCanvas(r *Renderer, tmpl image.Image) *canvas {
	b := tmpl.Bounds()
	scale := r.layout.Scale
	img := image.NewRGBA(image.Rect(0, 0, int(float64(b.Dx())*scale), int(float64(b.Dy())*scale)))
	scaleInto(img, img.Bounds(), tmpl, draw.Src)
	return &canvas{r: r, img: img, w: float64(b.Dx()), h: float64(b.Dy()), scale: scale}
}

func (c *canvas) close() {
	for _, f := range c.faces {
		f.Close()
	}
}

func (c *canvas) face(size float64, bold bool) (font.Face, error) {
	f := c.r.regular
	if bold {
		f = c.r.bold
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: size * c.scale, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return nil, fmt.Errorf("font face %.1fpt: %w", size, err)
	}
	c.faces = append(c.faces, face)
	return face, nil
}

func (c *canvas) color(hex string) color.RGBA {
	return c.r.colors[hex]
}

// text draws a centered line at block.Y.
func (c *canvas) text(block TextBlock, s string) error {
	if s == "" {
		return nil
	}
	face, err := c.face(block.Size, block.Bold)
	if err != nil {
		return err
	}
	drawCentered(c.img, face, s, c.w*c.scale/2, block.Y*c.h*c.scale, toFixed(block.LetterSpacing*c.scale), c.color(block.Color))
	return nil
}

// name draws the recipient, shrinking from MaxSize in Step increments until it
// fits MaxWidth or reaches MinSize.
func (c *canvas) name(block NameBlock, s string) error {
	if s == "" {
		return nil
	}
	var measureErr error
	size := FitFontSize(block.MaxSize, block.MinSize, block.Step, block.MaxWidth*c.w, func(size float64) float64 {
		face, err := c.face(size, block.Bold)
		if err != nil {
			measureErr = err
			return 0
		}
		return fromFixed(advanceWidth(face, s, 0)) / c.scale
	})
	if measureErr != nil {
		return measureErr
	}

	face, err := c.face(size, block.Bold)
	if err != nil {
		return err
	}
	drawCentered(c.img, face, s, c.w*c.scale/2, block.Y*c.h*c.scale, 0, c.color(block.Color))
	return nil
}

// rule draws a horizontal bar centered on (x, y), both fractions of the template.
func (c *canvas) rule(x, y, length, thickness float64, hex string) {
	cx, cy := x*c.w*c.scale, y*c.h*c.scale
	halfL, halfT := length*c.scale/2, math.Max(1, thickness*c.scale)/2
	rect := image.Rect(int(cx-halfL), int(cy-halfT), int(cx+halfL), int(math.Ceil(cy+halfT)))
	draw.Draw(c.img, rect, image.NewUniform(c.color(hex)), image.Point{}, draw.Over)
}

func (c *canvas) signature(block SignatureBlock, slot int, sig Signature) error {
	anchorX := block.AnchorsX[slot]
	c.rule(anchorX, block.Y, block.RuleLength, block.RuleThickness, block.Color)

	if len(sig.Image) > 0 {
		src, _, err := image.Decode(bytes.NewReader(sig.Image))
		if err != nil {
			c.r.log.Warn("signature image skipped", map[string]interface{}{"slot": slot, "error": err})
		} else {
			sb := src.Bounds()
			dw, dh := FitWithin(sb.Dx(), sb.Dy(), int(block.MaxWidth*c.scale), int(block.MaxHeight*c.scale))
			cx := int(anchorX * c.w * c.scale)
			bottom := int(block.Y*c.h*c.scale - block.Gap*c.scale)
			rect := image.Rect(cx-dw/2, bottom-dh, cx-dw/2+dw, bottom)
			scaleInto(c.img, rect, src, draw.Over)
		}
	}

	col := c.color(block.Color)
	lineY := block.Y * c.h * c.scale
	if sig.Name != "" {
		face, err := c.face(block.NameSize, true)
		if err != nil {
			return err
		}
		drawCentered(c.img, face, sig.Name, anchorX*c.w*c.scale, lineY+block.NameOffset*c.scale, 0, col)
	}
	if sig.Role != "" {
		face, err := c.face(block.RoleSize, false)
		if err != nil {
			return err
		}
		drawCentered(c.img, face, sig.Role, anchorX*c.w*c.scale, lineY+block.RoleOffset*c.scale, 0, col)
	}
	return nil
}

// FitFontSize returns the largest size in {max, max-step, ...} whose measured
// width fits maxWidth, never going below min.
func FitFontSize(maxSize, minSize, step, maxWidth float64, measure func(size float64) float64) float64 {
	size := maxSize
	for size > minSize && measure(size) > maxWidth {
		size = math.Max(minSize, size-step)
	}
	return size
}

// advanceWidth measures s glyph by glyph, adding spacing between glyphs.
func advanceWidth(face font.Face, s string, spacing fixed.Int26_6) fixed.Int26_6 {
	var total fixed.Int26_6
	prev := rune(-1)
	for _, r := range s {
		if prev >= 0 {
			total += face.Kern(prev, r) + spacing
		}
		adv, _ := face.GlyphAdvance(r)
		total += adv
		prev = r
	}
	return total
}

// drawCentered draws s so that its advance box is centered on (cx, cy).
func drawCentered(dst draw.Image, face font.Face, s string, cx, cy float64, spacing fixed.Int26_6, col color.Color) {
	m := face.Metrics()
	width := advanceWidth(face, s, spacing)
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot: fixed.Point26_6{
			X: toFixed(cx) - width/2,
			Y: toFixed(cy) + (m.Ascent-m.Descent)/2,
		},
	}
	prev := rune(-1)
	for _, r := range s {
		if prev >= 0 {
			d.Dot.X += face.Kern(prev, r) + spacing
		}
		d.DrawString(string(r))
		prev = r
	}
}

func toFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(v * 64))
}

func fromFixed(v fixed.Int26_6) float64 {
	return float64(v) / 64
}
