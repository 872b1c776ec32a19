package stream

import (
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"sync"

	"ProjectZukan/internal/entity"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/gobold"
)

var (
	labelFont     *truetype.Font
	labelFontOnce sync.Once

	palette = []color.RGBA{
		{R: 0xff, G: 0x38, B: 0x38, A: 0xff},
		{R: 0xff, G: 0x9d, B: 0x97, A: 0xff},
		{R: 0xff, G: 0x70, B: 0x1f, A: 0xff},
		{R: 0xff, G: 0xb2, B: 0x1d, A: 0xff},
		{R: 0xcf, G: 0xd2, B: 0x31, A: 0xff},
		{R: 0x48, G: 0xf9, B: 0x0a, A: 0xff},
		{R: 0x1a, G: 0x93, B: 0x34, A: 0xff},
		{R: 0x00, G: 0xd4, B: 0xbb, A: 0xff},
		{R: 0x2c, G: 0x99, B: 0xa8, A: 0xff},
		{R: 0x00, G: 0xc2, B: 0xff, A: 0xff},
		{R: 0x34, G: 0x45, B: 0x93, A: 0xff},
		{R: 0x64, G: 0x73, B: 0xff, A: 0xff},
		{R: 0x52, G: 0x00, B: 0x85, A: 0xff},
		{R: 0xcb, G: 0x38, B: 0xff, A: 0xff},
		{R: 0xff, G: 0x95, B: 0xc8, A: 0xff},
		{R: 0xff, G: 0x37, B: 0xc7, A: 0xff},
	}
)

func font() *truetype.Font {
	labelFontOnce.Do(func() {
		f, err := truetype.Parse(gobold.TTF)
		if err == nil {
			labelFont = f
		}
	})
	return labelFont
}

// LabelColor is stable per label so a class keeps its color across frames.
func LabelColor(label string) color.RGBA {
	h := fnv.New32a()
	_, _ = h.Write([]byte(label))
	return palette[h.Sum32()%uint32(len(palette))]
}

// Annotate draws every detection box and a "label 87%" tag onto a copy of img.
func Annotate(img image.Image, dets []entity.Detection) image.Image {
	dc := gg.NewContextForImage(img)
	if len(dets) == 0 {
		return dc.Image()
	}

	fontSize := float64(img.Bounds().Dx()) / 40
	if fontSize < 10 {
		fontSize = 10
	}
	if f := font(); f != nil {
		dc.SetFontFace(truetype.NewFace(f, &truetype.Options{Size: fontSize}))
	}
	lineWidth := fontSize / 5

	for _, d := range dets {
		r := d.Box.Rect().Sub(img.Bounds().Min)
		c := LabelColor(d.Label)

		dc.SetColor(c)
		dc.SetLineWidth(lineWidth)
		dc.DrawRectangle(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()))
		dc.Stroke()

		text := fmt.Sprintf("%s %d%%", d.Label, int(d.Confidence*100+0.5))
		w, h := dc.MeasureString(text)
		pad := fontSize / 4

		top := float64(r.Min.Y) - h - 2*pad
		if top < 0 {
			top = float64(r.Min.Y)
		}
		dc.DrawRectangle(float64(r.Min.X), top, w+2*pad, h+2*pad)
		dc.Fill()

		dc.SetColor(color.White)
		dc.DrawStringAnchored(text, float64(r.Min.X)+pad, top+pad, 0, 1)
	}

	return dc.Image()
}
