package analyzer

import "iter"

// Region is a square, axis-aligned window of an image
type Region struct {
	Row, Col, Size int
}

// Partition describes a regular grid of square regions
type Partition struct {
	Size   int
	Stride int
}

// BlockPartition returns a non-overlapping grid of fixed-size blocks
func BlockPartition(size int) Partition {
	return Partition{Size: size, Stride: size}
}

// DivisorPartition returns a non-overlapping grid whose region side is
// min(height, width)/divisor
func DivisorPartition(height, width, divisor int) Partition {
	if divisor <= 0 {
		return Partition{}
	}
	return BlockPartition(min(height, width) / divisor)
}

// Overlapping returns the same grid with a half-region stride
func (p Partition) Overlapping() Partition {
	stride := p.Size / 2
	if stride < 1 {
		stride = 1
	}
	return Partition{Size: p.Size, Stride: stride}
}

// Regions yields every full region of an image of the given size.
// Trailing windows that would extend past the image are skipped, never padded.
func (p Partition) Regions(height, width int) iter.Seq[Region] {
	return func(yield func(Region) bool) {
		if p.Size <= 0 || p.Stride <= 0 {
			return
		}
		for row := 0; row+p.Size <= height; row += p.Stride {
			for col := 0; col+p.Size <= width; col += p.Stride {
				if !yield(Region{Row: row, Col: col, Size: p.Size}) {
					return
				}
			}
		}
	}
}

// Count returns how many regions Regions yields
func (p Partition) Count(height, width int) int {
	if p.Size <= 0 || p.Stride <= 0 || height < p.Size || width < p.Size {
		return 0
	}
	return ((height-p.Size)/p.Stride + 1) * ((width-p.Size)/p.Stride + 1)
}
