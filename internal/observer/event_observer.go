package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DetectionEvent represents a detection lifecycle event
type DetectionEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	AnalysisID     string                 `json:"analysis_id"`
	Source         string                 `json:"source"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Success        bool                   `json:"success"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	ErrorType      string                 `json:"error_type,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`

	// Populated on DetectionCompleted
	Prediction        string   `json:"prediction,omitempty"`
	MorphProbability  float64  `json:"morph_probability,omitempty"`
	DegradedAnalyzers []string `json:"degraded_analyzers,omitempty"`
}

// EventType represents the type of detection event
type EventType string

const (
	// DetectionStarted when detection begins
	DetectionStarted EventType = "detection_started"
	// DetectionCompleted when a report was produced
	DetectionCompleted EventType = "detection_completed"
	// DetectionFailed when no report could be produced
	DetectionFailed EventType = "detection_failed"
	// ImageFetched when image is successfully fetched and decoded
	ImageFetched EventType = "image_fetched"
	// ImageFetchFailed when image fetch fails
	ImageFetchFailed EventType = "image_fetch_failed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event DetectionEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event DetectionEvent)
}

// LoggingObserver logs detection events
type LoggingObserver struct {
	logger logrus.FieldLogger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger logrus.FieldLogger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles detection events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event DetectionEvent) {
	fields := logrus.Fields{
		"event_type":  event.EventType,
		"analysis_id": event.AnalysisID,
		"source":      event.Source,
		"success":     event.Success,
	}
	if event.ProcessingTime > 0 {
		fields["processing_time"] = event.ProcessingTime.Seconds()
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
		fields["error_type"] = event.ErrorType
	}
	if event.EventType == DetectionCompleted {
		fields["prediction"] = event.Prediction
		fields["morph_probability"] = event.MorphProbability
		if len(event.DegradedAnalyzers) > 0 {
			fields["degraded_analyzers"] = event.DegradedAnalyzers
		}
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case DetectionStarted:
		entry.Info("Morph detection started")
	case DetectionCompleted:
		if len(event.DegradedAnalyzers) > 0 {
			entry.Warn("Morph detection completed with degraded analyzers")
			return
		}
		entry.Info("Morph detection completed")
	case DetectionFailed:
		entry.Error("Morph detection failed")
	case ImageFetched:
		entry.Debug("Image fetched successfully")
	case ImageFetchFailed:
		// DetectionFailed follows with the same error at Error level
		entry.Warn("Image fetch failed")
	default:
		entry.Info("Detection event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver keeps in-process detection counters
type MetricsObserver struct {
	mu                  sync.RWMutex
	totalDetections     int64
	completedDetections int64
	failedDetections    int64
	degradedDetections  int64
	totalProcessingTime time.Duration
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{}
}

// OnEvent handles detection events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event DetectionEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case DetectionStarted:
		o.totalDetections++
	case DetectionCompleted:
		o.completedDetections++
		o.totalProcessingTime += event.ProcessingTime
		if len(event.DegradedAnalyzers) > 0 {
			o.degradedDetections++
		}
	case DetectionFailed:
		o.failedDetections++
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns current metrics
func (o *MetricsObserver) GetMetrics() map[string]interface{} {
	o.mu.RLock()
	defer o.mu.RUnlock()

	avgProcessingTime := time.Duration(0)
	if o.completedDetections > 0 {
		avgProcessingTime = o.totalProcessingTime / time.Duration(o.completedDetections)
	}

	return map[string]interface{}{
		"total_detections":      o.totalDetections,
		"completed_detections":  o.completedDetections,
		"failed_detections":     o.failedDetections,
		"degraded_detections":   o.degradedDetections,
		"total_processing_time": o.totalProcessingTime,
		"avg_processing_time":   avgProcessingTime,
	}
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
	wg        sync.WaitGroup
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers notifies all observers of an event concurrently
func (p *EventPublisher) NotifyObservers(ctx context.Context, event DetectionEvent) {
	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, observer := range observers {
		p.wg.Add(1)
		go func(obs Observer) {
			defer p.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					// Log panic but don't crash the application
					logrus.WithField("observer", obs.GetObserverName()).
						WithField("panic", r).
						Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(ctx, event)
		}(observer)
	}
}

// Flush waits until every notification sent so far has been handled
func (p *EventPublisher) Flush() {
	p.wg.Wait()
}
