package main

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportPNGRoundTrip(t *testing.T) {
	buf := solidBuffer(6, 4, 40, 80, 120)
	buf.Pix[0], buf.Pix[1], buf.Pix[2] = 255, 0, 0

	path := filepath.Join(t.TempDir(), "frame.png")
	require.NoError(t, exportPNG(buf, path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	require.Equal(t, 6, img.Bounds().Dx())
	require.Equal(t, 4, img.Bounds().Dy())

	r, g, b, a := img.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Zero(t, g)
	assert.Zero(t, b)
	assert.Equal(t, uint32(0xffff), a)

	r, g, b, _ = img.At(3, 2).RGBA()
	assert.Equal(t, uint32(40*0x101), r)
	assert.Equal(t, uint32(80*0x101), g)
	assert.Equal(t, uint32(120*0x101), b)
}

func TestExportPNGRejectsEmptyFrame(t *testing.T) {
	assert.Error(t, exportPNG(nil, filepath.Join(t.TempDir(), "x.png")))
	assert.Error(t, exportPNG(&PixelBuffer{}, filepath.Join(t.TempDir(), "x.png")))
}

func TestExportPathUsesTimestamp(t *testing.T) {
	now := time.Date(2024, 3, 9, 14, 5, 6, 0, time.UTC)
	got := exportPath("shots", now)
	assert.Equal(t, filepath.Join("shots", "mandelscope_20240309_140506.png"), got)
}
