package main

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"
)

// exportPNG writes a finished frame to path. The frame is the scheduler's RGB
// wire format; PNG wants RGBA, so the alpha plane is filled in here.
func exportPNG(buf *PixelBuffer, path string) error {
	if buf == nil || buf.Width < 1 || buf.Height < 1 {
		return fmt.Errorf("no frame to export")
	}
	img := image.NewRGBA(image.Rect(0, 0, buf.Width, buf.Height))
	for y := 0; y < buf.Height; y++ {
		src := y * buf.Width * 3
		dst := y * img.Stride
		for x := 0; x < buf.Width; x++ {
			img.Pix[dst] = buf.Pix[src]
			img.Pix[dst+1] = buf.Pix[src+1]
			img.Pix[dst+2] = buf.Pix[src+2]
			img.Pix[dst+3] = 0xff
			src += 3
			dst += 4
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// exportPath names an export file after the moment it was taken.
func exportPath(dir string, now time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("mandelscope_%s.png", now.Format("20060102_150405")))
}
