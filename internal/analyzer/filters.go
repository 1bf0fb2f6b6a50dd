package analyzer

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// gaussianKernel returns a normalized 1-D Gaussian kernel of odd size
func gaussianKernel(size int, sigma float64) []float64 {
	kernel := make([]float64, size)
	half := size / 2
	var sum float64
	for i := range kernel {
		d := float64(i - half)
		kernel[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// gaussianBlur applies a separable Gaussian with reflect-101 borders
func gaussianBlur(p *Plane, size int, sigma float64) *Plane {
	kernel := gaussianKernel(size, sigma)
	half := size / 2

	horizontal := newPlane(p.W, p.H)
	for y := 0; y < p.H; y++ {
		for x := 0; x < p.W; x++ {
			var acc float64
			for k, weight := range kernel {
				acc += weight * p.atReflect(x+k-half, y)
			}
			horizontal.Data[y*p.W+x] = acc
		}
	}

	out := newPlane(p.W, p.H)
	for y := 0; y < p.H; y++ {
		for x := 0; x < p.W; x++ {
			var acc float64
			for k, weight := range kernel {
				acc += weight * horizontal.atReflect(x, y+k-half)
			}
			out.Data[y*p.W+x] = acc
		}
	}
	return out
}

const (
	tan22_5 = 0.41421356237309503
	tan67_5 = 2.414213562373095
)

// canny returns a binary edge map (1 = edge) using L1 Sobel magnitude,
// non-maximum suppression and hysteresis between low and high.
func canny(gray *Plane, low, high float64) *Plane {
	w, h := gray.W, gray.H
	gx, gy := sobel(gray)

	mag := make([]float64, w*h)
	for i := range mag {
		mag[i] = math.Abs(gx.Data[i]) + math.Abs(gy.Data[i])
	}

	const (
		none uint8 = iota
		weak
		strong
	)
	state := make([]uint8, w*h)
	var stack []int

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			m := mag[i]
			if m <= low {
				continue
			}

			ax, ay := math.Abs(gx.Data[i]), math.Abs(gy.Data[i])
			var before, after float64
			switch {
			case ay <= ax*tan22_5:
				before, after = mag[i-1], mag[i+1]
			case ay >= ax*tan67_5:
				before, after = mag[i-w], mag[i+w]
			case gx.Data[i]*gy.Data[i] < 0:
				before, after = mag[i-w+1], mag[i+w-1]
			default:
				before, after = mag[i-w-1], mag[i+w+1]
			}
			if !(m > before && m >= after) {
				continue
			}

			if m > high {
				state[i] = strong
				stack = append(stack, i)
			} else {
				state[i] = weak
			}
		}
	}

	// Promote weak pixels 8-connected to a strong one
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%w, i/w
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := x+dx, y+dy
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				j := ny*w + nx
				if state[j] == weak {
					state[j] = strong
					stack = append(stack, j)
				}
			}
		}
	}

	edges := newPlane(w, h)
	for i, s := range state {
		if s == strong {
			edges.Data[i] = 1
		}
	}
	return edges
}

// blockDCT computes orthonormal 2-D DCT-II coefficients of square blocks.
// It holds scratch matrices and must not be shared between goroutines.
type blockDCT struct {
	size   int
	basis  *mat.Dense
	block  *mat.Dense
	tmp    *mat.Dense
	coeffs *mat.Dense
}

func newBlockDCT(size int) *blockDCT {
	basis := mat.NewDense(size, size, nil)
	n := float64(size)
	for k := 0; k < size; k++ {
		alpha := math.Sqrt(2 / n)
		if k == 0 {
			alpha = math.Sqrt(1 / n)
		}
		for j := 0; j < size; j++ {
			basis.Set(k, j, alpha*math.Cos(math.Pi*float64((2*j+1)*k)/(2*n)))
		}
	}

	return &blockDCT{
		size:   size,
		basis:  basis,
		block:  mat.NewDense(size, size, nil),
		tmp:    mat.NewDense(size, size, nil),
		coeffs: mat.NewDense(size, size, nil),
	}
}

// transform returns C·B·Cᵀ for the block of p at r. The returned matrix is
// overwritten by the next call.
func (d *blockDCT) transform(p *Plane, r Region) *mat.Dense {
	for i := 0; i < d.size; i++ {
		for j := 0; j < d.size; j++ {
			d.block.Set(i, j, p.At(r.Col+j, r.Row+i))
		}
	}
	d.tmp.Mul(d.basis, d.block)
	d.coeffs.Mul(d.tmp, d.basis.T())
	return d.coeffs
}

// localBinaryPattern computes the rotation-invariant uniform LBP code of
// every pixel from points samples on a circle of the given radius.
// Non-uniform patterns map to points+1. Samples outside the image are
// clamped to the border so flat areas stay flat up to the edge.
func localBinaryPattern(gray *Plane, points int, radius float64) *Plane {
	dys := make([]float64, points)
	dxs := make([]float64, points)
	for p := 0; p < points; p++ {
		theta := 2 * math.Pi * float64(p) / float64(points)
		dys[p] = roundTo(-radius*math.Sin(theta), 5)
		dxs[p] = roundTo(radius*math.Cos(theta), 5)
	}

	out := newPlane(gray.W, gray.H)
	bits := make([]bool, points)
	for y := 0; y < gray.H; y++ {
		for x := 0; x < gray.W; x++ {
			center := gray.At(x, y)
			ones := 0
			for p := 0; p < points; p++ {
				bits[p] = bilinear(gray, float64(x)+dxs[p], float64(y)+dys[p]) >= center
				if bits[p] {
					ones++
				}
			}

			changes := 0
			for p := 0; p < points-1; p++ {
				if bits[p] != bits[p+1] {
					changes++
				}
			}

			code := points + 1
			if changes <= 2 {
				code = ones
			}
			out.Data[y*gray.W+x] = float64(code)
		}
	}
	return out
}

// bilinear interpolates p at fractional coordinates with clamped borders.
// Interpolation is written as nested lerps so equal corners return exactly
// the corner value.
func bilinear(p *Plane, fx, fy float64) float64 {
	x0, y0 := math.Floor(fx), math.Floor(fy)
	tx, ty := fx-x0, fy-y0
	ix, iy := int(x0), int(y0)

	a := p.atClamp(ix, iy)
	b := p.atClamp(ix+1, iy)
	c := p.atClamp(ix, iy+1)
	d := p.atClamp(ix+1, iy+1)

	top := a + (b-a)*tx
	bottom := c + (d-c)*tx
	return top + (bottom-top)*ty
}

func roundTo(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}
