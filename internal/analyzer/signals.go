package analyzer

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

const (
	// epsilon keeps dispersion ratios finite on zero means
	epsilon = 1e-6
	// activityFloor is half a squared 8-bit step; mean region variances
	// below it are treated as flat
	activityFloor = 0.5

	dctBlockSize = 8
	dctHighBand  = 4

	noiseBlurSize  = 5
	noiseBlurSigma = 1.0

	cannyLow  = 50
	cannyHigh = 150

	lbpPoints = 24
	lbpRadius = 3
)

var (
	compressionDamping = damping{
		meanFloor: 1.0, spreadFloor: 0.5, quietNeedsBoth: true,
		sqrtAbove: 2.0, sqrtScale: 0.3, linearDivisor: 5.0,
	}
	noiseDamping = damping{
		meanFloor: 20, spreadFloor: math.Inf(-1),
		sqrtAbove: 100, sqrtScale: 0.2, linearDivisor: 200,
	}
	edgeDamping = damping{
		meanFloor: 0.02, spreadFloor: 0.01,
		sqrtAbove: 0.05, sqrtScale: 0.25, linearDivisor: 0.1,
	}
)

// newSignalAnalyzers builds the six analyzers in report order
func newSignalAnalyzers(opts DetectionOptions) []SignalAnalyzer {
	return []SignalAnalyzer{
		newRegionAnalyzer(compressionSpec()),
		newRegionAnalyzer(noiseSpec()),
		newRegionAnalyzer(edgeSpec()),
		newRegionAnalyzer(lightingSpec()),
		newRegionAnalyzer(colorSpec()),
		newRegionAnalyzer(textureSpec(opts.TextureDescriptor)),
	}
}

func divisor(n int) func(height, width int) Partition {
	return func(height, width int) Partition {
		return DivisorPartition(height, width, n)
	}
}

func grayOnly(img *Image) signal {
	return signal{planes: []*Plane{grayPlane(img)}}
}

// compressionSpec measures how the high-frequency DCT sub-band of 8x8 luma
// blocks disperses across the image
func compressionSpec() signalSpec {
	return signalSpec{
		name:     Compression,
		channels: 1,
		keys:     []string{"compression_variance", "compression_mean"},
		granularity: func(int, int) Partition {
			return BlockPartition(dctBlockSize)
		},
		extract: grayOnly,
		newStatistic: func() regionStatistic {
			dct := newBlockDCT(dctBlockSize)
			band := (dctBlockSize - dctHighBand) * (dctBlockSize - dctHighBand)
			high := make([]float64, 0, band)
			magnitude := make([]float64, 0, band)
			return func(s signal, r Region, out []float64) {
				coeffs := dct.transform(s.planes[0], r)
				high, magnitude = high[:0], magnitude[:0]
				for i := dctHighBand; i < dctBlockSize; i++ {
					for j := dctHighBand; j < dctBlockSize; j++ {
						v := coeffs.At(i, j)
						high = append(high, v)
						magnitude = append(magnitude, math.Abs(v))
					}
				}
				out[0] = stat.PopStdDev(high, nil) / (stat.Mean(magnitude, nil) + epsilon)
			}
		},
		score: func(spread []dispersion, _ signal) (float64, map[string]float64) {
			d := spread[0]
			return compressionDamping.apply(d.Mean, d.Variance), map[string]float64{
				"compression_variance": d.Variance,
				"compression_mean":     d.Mean,
			}
		},
	}
}

// noiseSpec measures the variance of the high-pass residual per region
func noiseSpec() signalSpec {
	return signalSpec{
		name:        Noise,
		channels:    1,
		keys:        []string{"noise_variance_std", "noise_variance_mean"},
		granularity: divisor(4),
		extract: func(img *Image) signal {
			gray := grayPlane(img)
			blurred := gaussianBlur(gray, noiseBlurSize, noiseBlurSigma)
			residual := newPlane(gray.W, gray.H)
			for i := range residual.Data {
				residual.Data[i] = gray.Data[i] - blurred.Data[i]
			}
			return signal{planes: []*Plane{residual}}
		},
		newStatistic: regionVariance,
		score: func(spread []dispersion, _ signal) (float64, map[string]float64) {
			d := spread[0]
			return noiseDamping.apply(d.Mean, d.Std()), map[string]float64{
				"noise_variance_std":  d.Std(),
				"noise_variance_mean": d.Mean,
			}
		},
	}
}

// edgeSpec measures Canny edge density per region
func edgeSpec() signalSpec {
	return signalSpec{
		name:        Edge,
		channels:    1,
		keys:        []string{"edge_density_std", "edge_density_mean"},
		granularity: divisor(6),
		extract: func(img *Image) signal {
			return signal{planes: []*Plane{canny(grayPlane(img), cannyLow, cannyHigh)}}
		},
		newStatistic: regionMean,
		score: func(spread []dispersion, _ signal) (float64, map[string]float64) {
			d := spread[0]
			return edgeDamping.apply(d.Mean, d.Std()), map[string]float64{
				"edge_density_std":  d.Std(),
				"edge_density_mean": d.Mean,
			}
		},
	}
}

// lightingSpec measures the variance of CIE lightness per region
func lightingSpec() signalSpec {
	return signalSpec{
		name:        Lighting,
		channels:    1,
		keys:        []string{"lighting_variance_std", "lighting_variance_mean", "gradient_mean"},
		granularity: divisor(5),
		extract: func(img *Image) signal {
			lightness := lightnessPlane(img)
			return signal{
				planes: []*Plane{lightness},
				extras: map[string]float64{
					"gradient_mean": stat.Mean(gradientMagnitude(lightness).Data, nil),
				},
			}
		},
		newStatistic: regionVariance,
		score: func(spread []dispersion, s signal) (float64, map[string]float64) {
			d := spread[0]
			return ratioScore(d), map[string]float64{
				"lighting_variance_std":  d.Std(),
				"lighting_variance_mean": d.Mean,
				"gradient_mean":          s.extras["gradient_mean"],
			}
		},
	}
}

// colorSpec measures hue, saturation and value variance per region
func colorSpec() signalSpec {
	return signalSpec{
		name:        Color,
		channels:    3,
		keys:        []string{"hue_variance_std", "saturation_variance_std", "value_variance_std"},
		granularity: divisor(4),
		extract: func(img *Image) signal {
			hue, sat, val := hsvPlanes(img)
			return signal{planes: []*Plane{hue, sat, val}}
		},
		newStatistic: regionVariance,
		score: func(spread []dispersion, _ signal) (float64, map[string]float64) {
			var total float64
			for _, d := range spread {
				total += ratioScore(d)
			}
			return math.Min(total/float64(len(spread)), 1), map[string]float64{
				"hue_variance_std":        spread[0].Std(),
				"saturation_variance_std": spread[1].Std(),
				"value_variance_std":      spread[2].Std(),
			}
		},
	}
}

// textureSpec measures the variance of a micro-texture descriptor per region
func textureSpec(descriptor TextureDescriptor) signalSpec {
	return signalSpec{
		name:        Texture,
		channels:    1,
		keys:        []string{"texture_variance_std", "texture_variance_mean"},
		granularity: divisor(6),
		extract: func(img *Image) signal {
			gray := grayPlane(img)
			if descriptor == TextureGradient {
				return signal{planes: []*Plane{gradientMagnitude(gray)}}
			}
			return signal{planes: []*Plane{localBinaryPattern(gray, lbpPoints, lbpRadius)}}
		},
		newStatistic: regionVariance,
		score: func(spread []dispersion, _ signal) (float64, map[string]float64) {
			d := spread[0]
			return ratioScore(d), map[string]float64{
				"texture_variance_std":  d.Std(),
				"texture_variance_mean": d.Mean,
			}
		},
	}
}
