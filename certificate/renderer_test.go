package certificate

import (
	"brz/apperrors"
	"brz/logger"
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int, fill color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, fill)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func sampleInput(t *testing.T) Input {
	return Input{
		Template:       pngBytes(t, 400, 300, color.RGBA{R: 0xF5, G: 0xEC, B: 0xDC, A: 0xFF}),
		RecipientName:  "Ayu Lestari",
		SkillLabel:     "Basic Barista Class",
		CompletionDate: "16 October 2026",
		Issuer:         "Brewzone Coffee Academy",
		Signatures: [2]Signature{
			{Image: pngBytes(t, 120, 40, color.Black), Name: "Head Barista", Role: "Instructor"},
			{Name: "Academy Director", Role: "Director"},
		},
	}
}

func newTestRenderer(t *testing.T) *Renderer {
	r, err := NewRenderer(DefaultLayout(), logger.NewTestLogger(t))
	require.NoError(t, err)
	return r
}

func TestRender_SupersamplesTemplate(t *testing.T) {
	out, err := newTestRenderer(t).Render(sampleInput(t))
	require.NoError(t, err)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 800, cfg.Width)
	assert.Equal(t, 600, cfg.Height)
}

func TestRender_Deterministic(t *testing.T) {
	r := newTestRenderer(t)
	in := sampleInput(t)

	first, err := r.Render(in)
	require.NoError(t, err)
	second, err := r.Render(in)
	require.NoError(t, err)

	assert.True(t, bytes.Equal(first, second), "same input must render byte-identical output")
}

func TestRender_DrawsText(t *testing.T) {
	r := newTestRenderer(t)
	in := sampleInput(t)
	in.RecipientName = ""
	blank, err := r.Render(in)
	require.NoError(t, err)

	in.RecipientName = "Ayu Lestari"
	named, err := r.Render(in)
	require.NoError(t, err)

	assert.False(t, bytes.Equal(blank, named))
}

func TestRender_LongNameStillRenders(t *testing.T) {
	in := sampleInput(t)
	in.RecipientName = "Maria Fernanda de los Santos Villanueva Hernández-Wijayakusuma"

	_, err := newTestRenderer(t).Render(in)
	assert.NoError(t, err)
}

func TestRender_SkipsUndecodableSignature(t *testing.T) {
	in := sampleInput(t)
	in.Signatures[1].Image = []byte("not an image")

	out, err := newTestRenderer(t).Render(in)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestRender_BadTemplate(t *testing.T) {
	r := newTestRenderer(t)
	for _, tmpl := range [][]byte{nil, []byte("garbage")} {
		in := sampleInput(t)
		in.Template = tmpl
		_, err := r.Render(in)
		assert.ErrorIs(t, err, apperrors.ErrConfiguration)
	}
}

func TestNewRenderer_InvalidLayout(t *testing.T) {
	l := DefaultLayout()
	l.Scale = 0
	_, err := NewRenderer(l, nil)
	assert.ErrorIs(t, err, apperrors.ErrConfiguration)
}

func TestFitFontSize(t *testing.T) {
	width := func(size float64) float64 { return size * 10 }

	assert.Equal(t, 72.0, FitFontSize(72, 28, 2, 800, width))
	assert.Equal(t, 40.0, FitFontSize(72, 28, 2, 400, width))
	assert.Equal(t, 28.0, FitFontSize(72, 28, 2, 10, width), "never below the floor")
	assert.Equal(t, 28.0, FitFontSize(72, 28, 5, 280, width), "clamps the last step to the floor")
}

func TestFitWithin(t *testing.T) {
	w, h := FitWithin(400, 200, 220, 90)
	assert.Equal(t, 180, w)
	assert.Equal(t, 90, h)

	w, h = FitWithin(50, 20, 220, 90)
	assert.Equal(t, 220, w)
	assert.Equal(t, 88, h)

	w, h = FitWithin(0, 20, 220, 90)
	assert.Zero(t, w)
	assert.Zero(t, h)
}
