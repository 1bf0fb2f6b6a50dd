package analyzer

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// TextureDescriptor selects the per-pixel measure used by the texture analyzer
type TextureDescriptor string

const (
	// TextureLBP is the uniform local binary pattern with 24 points at radius 3
	TextureLBP TextureDescriptor = "lbp"
	// TextureGradient is the Sobel gradient magnitude
	TextureGradient TextureDescriptor = "gradient"
)

// ParseTextureDescriptor validates a descriptor name. Empty selects TextureLBP.
func ParseTextureDescriptor(name string) (TextureDescriptor, error) {
	switch TextureDescriptor(strings.ToLower(strings.TrimSpace(name))) {
	case "", TextureLBP:
		return TextureLBP, nil
	case TextureGradient:
		return TextureGradient, nil
	default:
		return "", fmt.Errorf("unknown texture descriptor %q (want %q or %q)", name, TextureLBP, TextureGradient)
	}
}

// DetectionOptions provides flexible configuration for morph detection
type DetectionOptions struct {
	// Parallel runs the six analyzers on the worker pool
	Parallel bool
	// MaxWorkers sizes the worker pool; 0 uses the CPU count
	MaxWorkers int

	TextureDescriptor TextureDescriptor

	// Logger receives analyzer failures; nil discards them
	Logger logrus.FieldLogger
}

// DefaultOptions returns default detection options
func DefaultOptions() DetectionOptions {
	return DetectionOptions{
		Parallel:          true,
		MaxWorkers:        0, // Use default CPU count
		TextureDescriptor: TextureLBP,
	}
}

// SequentialOptions returns options that run analyzers one after another
func SequentialOptions() DetectionOptions {
	opts := DefaultOptions()
	opts.Parallel = false
	return opts
}

// WithParallel enables or disables parallel analyzer dispatch
func (opts DetectionOptions) WithParallel(parallel bool) DetectionOptions {
	opts.Parallel = parallel
	return opts
}

// WithMaxWorkers sets the worker pool size
func (opts DetectionOptions) WithMaxWorkers(workers int) DetectionOptions {
	opts.MaxWorkers = workers
	return opts
}

// WithTextureDescriptor selects the texture measure
func (opts DetectionOptions) WithTextureDescriptor(descriptor TextureDescriptor) DetectionOptions {
	opts.TextureDescriptor = descriptor
	return opts
}

// WithLogger sets the logger used for analyzer failures
func (opts DetectionOptions) WithLogger(logger logrus.FieldLogger) DetectionOptions {
	opts.Logger = logger
	return opts
}

func (opts DetectionOptions) logger() logrus.FieldLogger {
	if opts.Logger != nil {
		return opts.Logger
	}
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	return discard
}
