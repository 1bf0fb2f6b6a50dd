package analyzer

import (
	"math"
)

// Plane is a single-channel float sample grid derived from an Image
type Plane struct {
	W, H int
	Data []float64
}

func newPlane(w, h int) *Plane {
	return &Plane{W: w, H: h, Data: make([]float64, w*h)}
}

// At returns the sample at (x, y)
func (p *Plane) At(x, y int) float64 {
	return p.Data[y*p.W+x]
}

// atReflect samples with reflect-101 borders (gfedcb|abcdefgh|gfedcba)
func (p *Plane) atReflect(x, y int) float64 {
	return p.Data[reflect101(y, p.H)*p.W+reflect101(x, p.W)]
}

// atClamp samples with replicated borders
func (p *Plane) atClamp(x, y int) float64 {
	return p.Data[clampIndex(y, p.H)*p.W+clampIndex(x, p.W)]
}

func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// grayPlane computes Rec.601 luma quantized to 8-bit levels
func grayPlane(img *Image) *Plane {
	p := newPlane(img.Width(), img.Height())
	for y := 0; y < p.H; y++ {
		for x := 0; x < p.W; x++ {
			r, g, b := img.RGB(x, y)
			p.Data[y*p.W+x] = math.Round(0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b))
		}
	}
	return p
}

// srgbLinear maps 8-bit sRGB values to linear light
var srgbLinear = func() [256]float64 {
	var lut [256]float64
	for i := range lut {
		c := float64(i) / 255
		if c <= 0.04045 {
			lut[i] = c / 12.92
		} else {
			lut[i] = math.Pow((c+0.055)/1.055, 2.4)
		}
	}
	return lut
}()

// lightnessPlane computes CIE L* scaled to 0..255 like an 8-bit Lab image
func lightnessPlane(img *Image) *Plane {
	p := newPlane(img.Width(), img.Height())
	for y := 0; y < p.H; y++ {
		for x := 0; x < p.W; x++ {
			r, g, b := img.RGB(x, y)
			lum := 0.212671*srgbLinear[r] + 0.715160*srgbLinear[g] + 0.072169*srgbLinear[b]
			var l float64
			if lum > 0.008856 {
				l = 116*math.Cbrt(lum) - 16
			} else {
				l = 903.3 * lum
			}
			p.Data[y*p.W+x] = math.Round(l * 255 / 100)
		}
	}
	return p
}

// hsvPlanes returns hue (0..180), saturation and value (0..255) planes
func hsvPlanes(img *Image) (hue, sat, val *Plane) {
	w, h := img.Width(), img.Height()
	hue, sat, val = newPlane(w, h), newPlane(w, h), newPlane(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b := img.RGB(x, y)
			hh, s, v := rgbToHSV(float64(r)/255, float64(g)/255, float64(b)/255)
			i := y*w + x
			hue.Data[i] = math.Mod(math.Round(hh/2), 180)
			sat.Data[i] = math.Round(s * 255)
			val.Data[i] = math.Round(v * 255)
		}
	}
	return hue, sat, val
}

// rgbToHSV converts normalized RGB to hue in degrees and saturation/value in [0,1]
func rgbToHSV(r, g, b float64) (h, s, v float64) {
	max := math.Max(r, math.Max(g, b))
	min := math.Min(r, math.Min(g, b))
	delta := max - min

	v = max

	if max == 0 {
		s = 0
	} else {
		s = delta / max
	}

	if delta == 0 {
		h = 0
	} else if max == r {
		h = 60 * (((g - b) / delta) + 0)
	} else if max == g {
		h = 60 * (((b - r) / delta) + 2)
	} else {
		h = 60 * (((r - g) / delta) + 4)
	}

	if h < 0 {
		h += 360
	}

	return h, s, v
}

// sobel computes the 3x3 Sobel derivatives with reflect-101 borders
func sobel(p *Plane) (gx, gy *Plane) {
	gx, gy = newPlane(p.W, p.H), newPlane(p.W, p.H)
	for y := 0; y < p.H; y++ {
		for x := 0; x < p.W; x++ {
			tl, tc, tr := p.atReflect(x-1, y-1), p.atReflect(x, y-1), p.atReflect(x+1, y-1)
			ml, mr := p.atReflect(x-1, y), p.atReflect(x+1, y)
			bl, bc, br := p.atReflect(x-1, y+1), p.atReflect(x, y+1), p.atReflect(x+1, y+1)

			i := y*p.W + x
			gx.Data[i] = (tr + 2*mr + br) - (tl + 2*ml + bl)
			gy.Data[i] = (bl + 2*bc + br) - (tl + 2*tc + tr)
		}
	}
	return gx, gy
}

// gradientMagnitude returns the L2 Sobel magnitude of p
func gradientMagnitude(p *Plane) *Plane {
	gx, gy := sobel(p)
	out := newPlane(p.W, p.H)
	for i := range out.Data {
		out.Data[i] = math.Hypot(gx.Data[i], gy.Data[i])
	}
	return out
}
