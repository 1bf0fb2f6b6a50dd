package main

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/anime-shed/morph-inspector-go/internal/analyzer"
	"github.com/anime-shed/morph-inspector-go/internal/factory"
	"github.com/anime-shed/morph-inspector-go/internal/logger"
	"github.com/anime-shed/morph-inspector-go/internal/repository"
	"github.com/anime-shed/morph-inspector-go/internal/service"
	"github.com/anime-shed/morph-inspector-go/internal/storage"
	"github.com/anime-shed/morph-inspector-go/pkg/services"
	"github.com/anime-shed/morph-inspector-go/pkg/validation"
)

type detectOptions struct {
	format      string
	concurrency int
	sequential  bool
	texture     string
	timeout     time.Duration
}

func newDetectCommand() *cobra.Command {
	opts := &detectOptions{}

	cmd := &cobra.Command{
		Use:   "detect <image>...",
		Short: "Analyze images for signs of morphing",
		Long: `Analyze one or more images for signs of morphing.

Each argument may be a local path, a file:// URL, an http(s) URL or an
Azure Blob location (azblob://container/blob). Azure credentials are read
from AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(cmd, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format (text, json, yaml)")
	cmd.Flags().IntVarP(&opts.concurrency, "concurrency", "c", 0, "Images analyzed at once (0 = number of CPUs)")
	cmd.Flags().BoolVar(&opts.sequential, "sequential", false, "Run the analyzers of each image one after another")
	cmd.Flags().StringVar(&opts.texture, "texture", string(analyzer.TextureLBP), "Texture descriptor (lbp, gradient)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 2*time.Minute, "Per-image analysis timeout")

	return cmd
}

func runDetect(cmd *cobra.Command, opts *detectOptions, args []string) error {
	reporter, err := newReporter(opts.format, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	descriptor, err := analyzer.ParseTextureDescriptor(opts.texture)
	if err != nil {
		return err
	}
	if opts.concurrency < 0 {
		return fmt.Errorf("--concurrency must be >= 0 (got %d)", opts.concurrency)
	}

	detectionOptions := analyzer.DefaultOptions().
		WithParallel(!opts.sequential).
		WithTextureDescriptor(descriptor).
		WithLogger(logger.Logger)

	components := factory.NewComponentFactory(detectionOptions, factory.StorageConfig{
		FetchTimeout: 30 * time.Second,
		Limits:       storage.Limits{MaxBytes: storage.DefaultMaxImageBytes, MaxPixels: storage.DefaultMaxImagePixels},
		AzureAccount: os.Getenv("AZURE_STORAGE_ACCOUNT"),
		AzureKey:     os.Getenv("AZURE_STORAGE_KEY"),
	})

	detectorType := factory.ParallelDetector
	if opts.sequential {
		detectorType = factory.SequentialDetector
	}
	detector, err := components.DetectorFactory.CreateDetector(detectorType)
	if err != nil {
		return err
	}
	defer detector.Close()

	repo := repository.NewSourceRepository(components.StorageFactory, validation.NewLocationValidator())
	detection := service.NewMorphDetectionService(repo, detector, service.Options{
		AnalysisTimeout: opts.timeout,
		MaxImagePixels:  storage.DefaultMaxImagePixels,
		Logger:          logger.Logger,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	items, err := services.NewBatchDetectionService(detection, opts.concurrency).DetectAll(ctx, args)
	if err != nil && ctx.Err() == nil {
		return err
	}
	if reportErr := reporter.Report(items); reportErr != nil {
		return reportErr
	}
	if err != nil {
		return err
	}

	summary := services.Summarize(items)
	if summary.Failed > 0 {
		return &DetectionFailureError{Failed: summary.Failed, Total: summary.Total}
	}
	return nil
}
