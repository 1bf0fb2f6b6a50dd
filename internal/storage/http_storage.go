package storage

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"image"
	"net/http"
	"time"

	"github.com/anime-shed/morph-inspector-go/pkg/models"
	"github.com/anime-shed/morph-inspector-go/pkg/validation"
)

const (
	fetchAttempts     = 3
	maxRedirects      = 3
	defaultRetryDelay = time.Second
)

// ErrRedirectRejected indicates a redirect target failed URL validation or
// the redirect chain was too long
var ErrRedirectRejected = errors.New("redirect rejected")

// HTTPImageFetcher implements ImageFetcher for http and https URLs
type HTTPImageFetcher struct {
	client     *http.Client
	limits     Limits
	retryDelay time.Duration
}

// NewHTTPImageFetcher creates an HTTP image fetcher with connection pooling
// sized for single image downloads. Every redirect target is checked
// against urls; nil uses validation.NewURLValidator.
func NewHTTPImageFetcher(timeout time.Duration, limits Limits, urls *validation.URLValidator) *HTTPImageFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if urls == nil {
		urls = validation.NewURLValidator()
	}

	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		MaxResponseHeaderBytes: 4096,

		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}

	return &HTTPImageFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("%w: too many redirects (limit: %d)", ErrRedirectRejected, maxRedirects)
				}
				if err := urls.ValidateImageURL(req.URL.String()); err != nil {
					return fmt.Errorf("%w: %s: %w", ErrRedirectRejected, req.URL.Redacted(), err)
				}
				return nil
			},
		},
		limits:     limits,
		retryDelay: defaultRetryDelay,
	}
}

// FetchImage downloads and decodes the image at imageURL. Network errors and
// 5xx responses are retried with a linear backoff; 4xx responses are not.
func (h *HTTPImageFetcher) FetchImage(ctx context.Context, imageURL string) (image.Image, *models.ImageMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("Accept", "image/jpeg, image/png, image/webp, image/gif, image/bmp, image/tiff, */*")
	req.Header.Set("User-Agent", "Morph-Inspector/1.0")

	var lastErr error
	for attempt := 0; attempt < fetchAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, nil, fmt.Errorf("fetch cancelled: %w", ctx.Err())
			case <-time.After(time.Duration(attempt) * h.retryDelay):
			}
		}

		resp, err := h.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, fmt.Errorf("fetch cancelled: %w", ctx.Err())
			}
			if errors.Is(err, ErrRedirectRejected) {
				return nil, nil, err
			}
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusOK {
			img, meta, err := h.decode(resp)
			return img, meta, err
		}
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, nil, fmt.Errorf("%w: client error: status code %d", ErrImageNotFound, resp.StatusCode)
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			return nil, nil, fmt.Errorf("client error: status code %d", resp.StatusCode)
		default:
			lastErr = fmt.Errorf("server error: status code %d", resp.StatusCode)
		}
	}

	return nil, nil, fmt.Errorf("failed to fetch image after %d attempts: %w", fetchAttempts, lastErr)
}

func (h *HTTPImageFetcher) decode(resp *http.Response) (image.Image, *models.ImageMetadata, error) {
	defer resp.Body.Close()

	img, meta, err := ReadImage(resp.Body, h.limits)
	if err != nil {
		return nil, nil, err
	}
	meta.ContentType = resp.Header.Get("Content-Type")
	return img, meta, nil
}
