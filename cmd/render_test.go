package cmd

import (
	"brz/logger"
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemplate(t *testing.T, dir string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 320, 240))
	for y := 0; y < 240; y++ {
		for x := 0; x < 320; x++ {
			img.Set(x, y, color.RGBA{R: 0xFA, G: 0xF3, B: 0xE6, A: 0xFF})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	p := filepath.Join(dir, "template.png")
	require.NoError(t, os.WriteFile(p, buf.Bytes(), 0o644))
	return p
}

func TestRenderSample(t *testing.T) {
	dir := t.TempDir()
	opts := renderOptions{
		template: writeTemplate(t, dir),
		name:     "Jane Doe",
		program:  "Latte Art Masterclass",
		issuer:   "Brewzone Coffee Academy",
		out:      filepath.Join(dir, "out.png"),
		signerA:  "Head Barista",
		signerB:  "Academy Director",
	}

	require.NoError(t, renderSample(opts, logger.NewTestLogger(t)))

	f, err := os.Open(opts.out)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 640, cfg.Width)
	assert.Equal(t, 480, cfg.Height)
}

func TestRenderSample_MissingTemplate(t *testing.T) {
	opts := renderOptions{template: filepath.Join(t.TempDir(), "nope.png"), out: filepath.Join(t.TempDir(), "out.png")}
	assert.Error(t, renderSample(opts, logger.NewNoOpLogger()))
}
