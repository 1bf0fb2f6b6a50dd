package analyzer

import (
	"image"
	"image/draw"
)

// Image is an immutable 8-bit RGB raster decoded once per request.
// Alpha is dropped without premultiplication.
type Image struct {
	width, height int
	pix           []uint8
}

// NewImage copies src into a packed RGB raster
func NewImage(src image.Image) *Image {
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	nrgba, ok := src.(*image.NRGBA)
	if !ok || nrgba.Rect.Min != (image.Point{}) {
		nrgba = image.NewNRGBA(image.Rect(0, 0, width, height))
		draw.Draw(nrgba, nrgba.Bounds(), src, bounds.Min, draw.Src)
	}

	pix := make([]uint8, 0, width*height*3)
	for y := 0; y < height; y++ {
		row := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+width*4]
		for x := 0; x < width; x++ {
			pix = append(pix, row[x*4], row[x*4+1], row[x*4+2])
		}
	}

	return &Image{width: width, height: height, pix: pix}
}

// Width returns the raster width in pixels
func (im *Image) Width() int { return im.width }

// Height returns the raster height in pixels
func (im *Image) Height() int { return im.height }

// RGB returns the channel values of the pixel at (x, y)
func (im *Image) RGB(x, y int) (r, g, b uint8) {
	i := (y*im.width + x) * 3
	return im.pix[i], im.pix[i+1], im.pix[i+2]
}
