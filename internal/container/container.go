package container

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/anime-shed/morph-inspector-go/internal/analyzer"
	"github.com/anime-shed/morph-inspector-go/internal/config"
	"github.com/anime-shed/morph-inspector-go/internal/factory"
	"github.com/anime-shed/morph-inspector-go/internal/observer"
	"github.com/anime-shed/morph-inspector-go/internal/repository"
	"github.com/anime-shed/morph-inspector-go/internal/service"
	"github.com/anime-shed/morph-inspector-go/internal/transport"
	"github.com/anime-shed/morph-inspector-go/pkg/services"
	"github.com/anime-shed/morph-inspector-go/pkg/validation"
)

// Container holds all application dependencies
type Container struct {
	config           *config.Config
	registry         *prometheus.Registry
	publisher        *observer.EventPublisher
	metrics          *observer.MetricsObserver
	detector         analyzer.MorphDetector
	imageRepository  repository.ImageRepository
	detectionService service.MorphDetectionService
	batchService     *services.BatchDetectionService
	handler          http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config, log logrus.FieldLogger) (*Container, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	prometheusObserver, err := observer.NewPrometheusObserver(registry)
	if err != nil {
		return nil, err
	}
	metrics := observer.NewMetricsObserver()

	publisher := observer.NewEventPublisher()
	publisher.Subscribe(observer.NewLoggingObserver(log))
	publisher.Subscribe(metrics)
	publisher.Subscribe(prometheusObserver)

	urls := cfg.URLValidator()
	components := factory.NewComponentFactory(
		cfg.DetectionOptions().WithLogger(log),
		factory.StorageConfig{
			FetchTimeout: cfg.ImageFetchTimeout,
			Limits:       cfg.ImageLimits(),
			URLs:         urls,
			LocalRoot:    cfg.LocalImageRoot,
			AzureAccount: cfg.AzureStorageAccount,
			AzureKey:     cfg.AzureStorageKey,
		},
	)

	detectorType := factory.ParallelDetector
	if !cfg.ParallelAnalyzers {
		detectorType = factory.SequentialDetector
	}
	detector, err := components.DetectorFactory.CreateDetector(detectorType)
	if err != nil {
		return nil, fmt.Errorf("failed to create detector: %w", err)
	}

	imageRepository := repository.NewSourceRepository(components.StorageFactory, validation.NewLocationValidatorWithURLs(urls))
	detectionService := service.NewMorphDetectionService(imageRepository, detector, service.Options{
		AnalysisTimeout: cfg.AnalysisTimeout,
		MaxImagePixels:  cfg.MaxImagePixels,
		Logger:          log,
		Publisher:       publisher,
	})
	batchService := services.NewBatchDetectionService(detectionService, cfg.MaxWorkers)

	c := &Container{
		config:           cfg,
		registry:         registry,
		publisher:        publisher,
		metrics:          metrics,
		detector:         detector,
		imageRepository:  imageRepository,
		detectionService: detectionService,
		batchService:     batchService,
	}
	c.handler = transport.NewHandler(detectionService, batchService, registry, c.Status, cfg)
	return c, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// DetectionService returns the morph detection service
func (c *Container) DetectionService() service.MorphDetectionService {
	return c.detectionService
}

// Metrics returns the in-process detection counters
func (c *Container) Metrics() map[string]interface{} {
	return c.metrics.GetMetrics()
}

// Status reports the detection counters and, for a parallel detector, the
// worker pool counters. Durations are in seconds.
func (c *Container) Status() map[string]interface{} {
	detections := c.Metrics()
	for k, v := range detections {
		if d, ok := v.(time.Duration); ok {
			detections[k] = d.Seconds()
		}
	}

	status := map[string]interface{}{"detections": detections}
	if reporter, ok := c.detector.(analyzer.PoolReporter); ok {
		if stats, ok := reporter.PoolStats(); ok {
			status["worker_pool"] = stats
		}
	}
	return status
}

// Close waits for pending events and releases the detector's workers
func (c *Container) Close() error {
	c.publisher.Flush()
	return c.detector.Close()
}
