package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/anime-shed/morph-inspector-go/internal/analyzer"
	apperrors "github.com/anime-shed/morph-inspector-go/internal/errors"
	"github.com/anime-shed/morph-inspector-go/internal/observer"
	"github.com/anime-shed/morph-inspector-go/internal/repository"
	"github.com/anime-shed/morph-inspector-go/internal/storage"
	"github.com/anime-shed/morph-inspector-go/pkg/models"
	"github.com/anime-shed/morph-inspector-go/pkg/validation"
)

// MorphDetectionService defines the interface for morph detection
type MorphDetectionService interface {
	// DetectMorph analyzes the image stored at a local path
	DetectMorph(ctx context.Context, path string) (*models.DetectionResponse, error)

	// DetectFromLocation analyzes an image from any supported location
	DetectFromLocation(ctx context.Context, location string) (*models.DetectionResponse, error)

	// DetectFromBytes analyzes an already uploaded image
	DetectFromBytes(ctx context.Context, data []byte, name string) (*models.DetectionResponse, error)

	ValidateLocation(location string) error
}

// Options configures a morphDetectionService
type Options struct {
	// AnalysisTimeout bounds a single Detect call; zero disables the bound
	AnalysisTimeout time.Duration
	// MaxImagePixels rejects uploads before decoding; zero uses
	// storage.DefaultMaxImagePixels
	MaxImagePixels  int
	Logger          logrus.FieldLogger
	Publisher       observer.Subject
}

// morphDetectionService implements MorphDetectionService
type morphDetectionService struct {
	imageRepo repository.ImageRepository
	detector  analyzer.MorphDetector
	quality   *validation.QualityValidator
	locations *validation.LocationValidator

	analysisTimeout time.Duration
	maxPixels       int
	logger          logrus.FieldLogger
	publisher       observer.Subject

	now func() time.Time
}

// NewMorphDetectionService creates a new morph detection service
func NewMorphDetectionService(
	imageRepository repository.ImageRepository,
	detector analyzer.MorphDetector,
	opts Options,
) MorphDetectionService {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	publisher := opts.Publisher
	if publisher == nil {
		publisher = observer.NewEventPublisher()
	}
	maxPixels := opts.MaxImagePixels
	if maxPixels <= 0 {
		maxPixels = storage.DefaultMaxImagePixels
	}
	thresholds := validation.DefaultQualityThresholds()
	thresholds.MaxTotalPixels = maxPixels

	return &morphDetectionService{
		imageRepo:       imageRepository,
		detector:        detector,
		quality:         validation.NewQualityValidatorWithThresholds(thresholds),
		locations:       validation.NewLocationValidator(),
		analysisTimeout: opts.AnalysisTimeout,
		maxPixels:       maxPixels,
		logger:          logger,
		publisher:       publisher,
		now:             time.Now,
	}
}

// DetectMorph analyzes the image stored at a local path
func (s *morphDetectionService) DetectMorph(ctx context.Context, path string) (*models.DetectionResponse, error) {
	kind, err := s.locations.Classify(path)
	if err != nil {
		return nil, err
	}
	if kind != validation.LocationLocal {
		return nil, apperrors.NewValidationError("path must name a local file", nil).WithDetails(path)
	}
	return s.DetectFromLocation(ctx, path)
}

// DetectFromLocation fetches, decodes and analyzes the image at location
func (s *morphDetectionService) DetectFromLocation(ctx context.Context, location string) (*models.DetectionResponse, error) {
	if err := s.ValidateLocation(location); err != nil {
		return nil, s.mapError(err)
	}

	start := s.now()
	id := uuid.NewString()
	s.publish(ctx, observer.DetectionEvent{EventType: observer.DetectionStarted, AnalysisID: id, Source: location})

	img, metadata, err := s.imageRepo.FetchImage(ctx, location)
	if err != nil {
		appErr := s.mapError(err)
		s.publish(ctx, observer.DetectionEvent{
			EventType:    observer.ImageFetchFailed,
			AnalysisID:   id,
			Source:       location,
			ErrorMessage: err.Error(),
			ErrorType:    string(appErr.Type),
		})
		s.fail(ctx, id, location, start, appErr)
		return nil, appErr
	}
	s.publish(ctx, observer.DetectionEvent{EventType: observer.ImageFetched, AnalysisID: id, Source: location, Success: true})

	return s.detect(ctx, id, location, start, img, metadata)
}

// DetectFromBytes decodes data and analyzes it; name is only used as the
// response source. The header dimensions are checked before the pixel data
// is decoded.
func (s *morphDetectionService) DetectFromBytes(ctx context.Context, data []byte, name string) (*models.DetectionResponse, error) {
	if len(data) == 0 {
		return nil, apperrors.NewValidationError("image data cannot be empty", nil)
	}

	start := s.now()
	id := uuid.NewString()
	s.publish(ctx, observer.DetectionEvent{EventType: observer.DetectionStarted, AnalysisID: id, Source: name})

	header, _, err := storage.DecodeConfig(data)
	if err != nil {
		appErr := s.mapError(err)
		s.fail(ctx, id, name, start, appErr)
		return nil, appErr
	}
	if issues := s.quality.ValidateDimensions(header.Width, header.Height); s.quality.HasCriticalIssues(issues) {
		appErr := apperrors.NewValidationError("image rejected before analysis", nil).
			WithDetails(strings.Join(criticalMessages(issues), "; "))
		s.fail(ctx, id, name, start, appErr)
		return nil, appErr
	}

	img, metadata, err := storage.DecodeImage(data, s.maxPixels)
	if err != nil {
		appErr := s.mapError(err)
		s.fail(ctx, id, name, start, appErr)
		return nil, appErr
	}

	return s.detect(ctx, id, name, start, img, metadata)
}

// ValidateLocation validates the image location
func (s *morphDetectionService) ValidateLocation(location string) error {
	return s.imageRepo.ValidateLocation(location)
}

func (s *morphDetectionService) detect(
	ctx context.Context,
	id, source string,
	start time.Time,
	img image.Image,
	metadata *models.ImageMetadata,
) (*models.DetectionResponse, error) {
	report, err := s.runDetector(ctx, img)
	if err != nil {
		appErr := s.mapError(err)
		s.fail(ctx, id, source, start, appErr)
		return nil, appErr
	}

	elapsed := s.now().Sub(start)
	response := &models.DetectionResponse{
		ForensicsReport:   report,
		AnalysisID:        id,
		Source:            source,
		Timestamp:         start.UTC(),
		ProcessingTimeSec: elapsed.Seconds(),
	}
	if metadata != nil {
		response.ImageMetadata = *metadata
	}

	bounds := img.Bounds()
	response.Warnings = s.quality.ConvertIssuesToMessages(s.quality.ValidateDimensions(bounds.Dx(), bounds.Dy()))

	s.publish(ctx, observer.DetectionEvent{
		EventType:         observer.DetectionCompleted,
		AnalysisID:        id,
		Source:            source,
		ProcessingTime:    elapsed,
		Success:           true,
		Prediction:        report.Prediction,
		MorphProbability:  report.MorphProbability,
		DegradedAnalyzers: report.DegradedAnalyzers,
	})

	return response, nil
}

// runDetector runs Detect, abandoning it when ctx or the analysis timeout
// expires first
func (s *morphDetectionService) runDetector(ctx context.Context, img image.Image) (models.ForensicsReport, error) {
	if s.analysisTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.analysisTimeout)
		defer cancel()
	}

	done := make(chan models.ForensicsReport, 1)
	go func() {
		done <- s.detector.Detect(img)
	}()

	select {
	case report := <-done:
		return report, nil
	case <-ctx.Done():
		return models.ForensicsReport{}, ctx.Err()
	}
}

func criticalMessages(issues []validation.QualityIssue) []string {
	var messages []string
	for _, issue := range issues {
		if issue.Severity == "error" {
			messages = append(messages, fmt.Sprintf("%s: %s", issue.Type, issue.Message))
		}
	}
	return messages
}

func (s *morphDetectionService) fail(ctx context.Context, id, source string, start time.Time, appErr *apperrors.AppError) {
	s.publish(ctx, observer.DetectionEvent{
		EventType:      observer.DetectionFailed,
		AnalysisID:     id,
		Source:         source,
		ProcessingTime: s.now().Sub(start),
		ErrorMessage:   appErr.Error(),
		ErrorType:      string(appErr.Type),
	})
}

func (s *morphDetectionService) publish(ctx context.Context, event observer.DetectionEvent) {
	event.Timestamp = s.now()
	s.publisher.NotifyObservers(context.WithoutCancel(ctx), event)
}

// mapError converts repository and context failures into AppErrors.
// Errors that already carry an AppError keep it.
func (s *morphDetectionService) mapError(err error) *apperrors.AppError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewTimeoutError("image analysis timed out", err)
	case errors.Is(err, context.Canceled):
		return apperrors.NewTimeoutError("image analysis was cancelled", err)
	case errors.Is(err, repository.ErrImageNotFound):
		return apperrors.NewNotFoundError("image not found", err)
	case errors.Is(err, repository.ErrUndecodableImage):
		return apperrors.NewProcessingError("image could not be decoded", err)
	case errors.Is(err, storage.ErrImageTooLarge):
		return apperrors.NewValidationError("image exceeds size limit", err)
	case errors.Is(err, storage.ErrRedirectRejected):
		return apperrors.NewValidationError("image redirect not allowed", err)
	case errors.Is(err, storage.ErrOutsideRoot):
		return apperrors.NewValidationError("path outside allowed root", err)
	case errors.Is(err, storage.ErrInvalidBlobLocation):
		return apperrors.NewValidationError("invalid blob location", err)
	case errors.Is(err, repository.ErrInvalidLocation):
		if appErr, ok := apperrors.As(err); ok {
			return appErr
		}
		return apperrors.NewValidationError("invalid image location", err)
	case errors.Is(err, repository.ErrRepositoryUnavailable):
		return apperrors.NewInternalError("image storage unavailable", err)
	}
	if appErr, ok := apperrors.As(err); ok {
		return appErr
	}
	s.logger.WithError(err).Debug("Unclassified fetch error reported as a network failure")
	return apperrors.NewNetworkError("failed to fetch image", err)
}
