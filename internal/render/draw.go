package render

import (
	"image"
	"image/color"
	imagedraw "image/draw"
	"math"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

type pointF struct {
	X float64
	Y float64
}

// drawArrow paints a shaft plus head from a to b; unit scales the widths.
func drawArrow(img *image.RGBA, a, b pointF, unit float64, clr color.Color) {
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	dirX, dirY := dx/length, dy/length
	perpX, perpY := -dirY, dirX

	shaft := length - unit*0.45
	if shaft < unit*0.35 {
		shaft = length * 0.6
	}
	half := unit * 0.18
	head := unit * 0.16
	base := pointF{X: a.X + dirX*shaft, Y: a.Y + dirY*shaft}
	offset := func(p pointF, w float64) pointF { return pointF{X: p.X + perpX*w, Y: p.Y + perpY*w} }

	fillTriangle(img, offset(a, -half), offset(a, half), offset(base, half), clr)
	fillTriangle(img, offset(a, -half), offset(base, half), offset(base, -half), clr)
	fillTriangle(img, b, offset(base, -head*2), offset(base, head*2), clr)
}

func fillTriangle(img *image.RGBA, a, b, c pointF, clr color.Color) {
	minX := int(math.Floor(math.Min(a.X, math.Min(b.X, c.X))))
	maxX := int(math.Ceil(math.Max(a.X, math.Max(b.X, c.X))))
	minY := int(math.Floor(math.Min(a.Y, math.Min(b.Y, c.Y))))
	maxY := int(math.Ceil(math.Max(a.Y, math.Max(b.Y, c.Y))))
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if insideTriangle(float64(x)+0.5, float64(y)+0.5, a, b, c) {
				blendPixel(img, x, y, clr)
			}
		}
	}
}

func insideTriangle(x, y float64, a, b, c pointF) bool {
	denom := (b.Y-c.Y)*(a.X-c.X) + (c.X-b.X)*(a.Y-c.Y)
	if denom == 0 {
		return false
	}
	alpha := ((b.Y-c.Y)*(x-c.X) + (c.X-b.X)*(y-c.Y)) / denom
	beta := ((c.Y-a.Y)*(x-c.X) + (a.X-c.X)*(y-c.Y)) / denom
	return alpha >= 0 && beta >= 0 && 1-alpha-beta >= 0
}

// blendPixel composites clr over the pixel at (x, y) using premultiplied alpha.
func blendPixel(img *image.RGBA, x, y int, clr color.Color) {
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return
	}
	sr, sg, sb, sa := clr.RGBA()
	if sa == 0 {
		return
	}
	dst := img.RGBAAt(x, y)
	inv := 0xffff - sa
	mix := func(s uint32, d uint8) uint8 {
		return uint8((s + uint32(d)*0x101*inv/0xffff) >> 8)
	}
	img.SetRGBA(x, y, color.RGBA{
		R: mix(sr, dst.R),
		G: mix(sg, dst.G),
		B: mix(sb, dst.B),
		A: mix(sa, dst.A),
	})
}

func drawDisc(img *image.RGBA, center image.Point, radius int, clr color.Color) {
	r2 := radius * radius
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if x*x+y*y <= r2 {
				blendPixel(img, center.X+x, center.Y+y, clr)
			}
		}
	}
}

func drawRoundedPanel(img *image.RGBA, rect image.Rectangle, radius int, clr color.Color) {
	if rect.Empty() {
		return
	}
	if limit := min(rect.Dx(), rect.Dy()) / 2; radius > limit {
		radius = limit
	}
	fill := image.NewUniform(clr)
	if radius <= 0 {
		imagedraw.Draw(img, rect, fill, image.Point{}, imagedraw.Over)
		return
	}
	// cross of two rectangles, corners filled by quarter discs
	imagedraw.Draw(img, image.Rect(rect.Min.X+radius, rect.Min.Y, rect.Max.X-radius, rect.Max.Y), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Min.X, rect.Min.Y+radius, rect.Min.X+radius, rect.Max.Y-radius), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Max.X-radius, rect.Min.Y+radius, rect.Max.X, rect.Max.Y-radius), fill, image.Point{}, imagedraw.Over)
	corners := []struct {
		center image.Point
		clip   image.Rectangle
	}{
		{image.Pt(rect.Min.X+radius, rect.Min.Y+radius), image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+radius, rect.Min.Y+radius)},
		{image.Pt(rect.Max.X-radius-1, rect.Min.Y+radius), image.Rect(rect.Max.X-radius, rect.Min.Y, rect.Max.X, rect.Min.Y+radius)},
		{image.Pt(rect.Min.X+radius, rect.Max.Y-radius-1), image.Rect(rect.Min.X, rect.Max.Y-radius, rect.Min.X+radius, rect.Max.Y)},
		{image.Pt(rect.Max.X-radius-1, rect.Max.Y-radius-1), image.Rect(rect.Max.X-radius, rect.Max.Y-radius, rect.Max.X, rect.Max.Y)},
	}
	for _, c := range corners {
		sub, ok := img.SubImage(c.clip).(*image.RGBA)
		if !ok {
			continue
		}
		drawDisc(sub, c.center, radius, clr)
	}
}

func truncateWithEllipsis(face font.Face, text string, maxWidth int) string {
	text = strings.TrimSpace(text)
	if text == "" || maxWidth <= 0 {
		return text
	}
	drawer := font.Drawer{Face: face}
	if drawer.MeasureString(text).Round() <= maxWidth {
		return text
	}
	const ellipsis = "..."
	if drawer.MeasureString(ellipsis).Round() > maxWidth {
		return ""
	}
	runes := []rune(text)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		if candidate := string(runes) + ellipsis; drawer.MeasureString(candidate).Round() <= maxWidth {
			return candidate
		}
	}
	return ellipsis
}

func drawCenteredString(drawer *font.Drawer, rect image.Rectangle, text string, clr color.Color) {
	if text == "" {
		return
	}
	metrics := drawer.Face.Metrics()
	x := max(rect.Min.X, rect.Min.X+(rect.Dx()-drawer.MeasureString(text).Round())/2)
	baseline := rect.Min.Y + (rect.Dy()+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2
	drawer.Src = image.NewUniform(clr)
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(text)
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}
