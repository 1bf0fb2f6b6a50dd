package validation

import (
	"net/url"
	"strings"

	apperrors "github.com/anime-shed/morph-inspector-go/internal/errors"
)

// LocationKind identifies where an image location points
type LocationKind string

const (
	LocationLocal LocationKind = "local"
	LocationHTTP  LocationKind = "http"
	LocationAzure LocationKind = "azure"
)

const azureBlobHostSuffix = ".blob.core.windows.net"

// URLValidator handles URL validation logic
type URLValidator struct {
	allowedSchemes []string
	allowedHosts   []string
}

// NewURLValidator creates a new URL validator with default settings
func NewURLValidator() *URLValidator {
	return &URLValidator{
		allowedSchemes: []string{"http", "https"},
		allowedHosts:   []string{}, // empty means all hosts allowed
	}
}

// NewURLValidatorWithOptions creates a URL validator with custom options
func NewURLValidatorWithOptions(schemes []string, hosts []string) *URLValidator {
	return &URLValidator{
		allowedSchemes: schemes,
		allowedHosts:   hosts,
	}
}

// ValidateImageURL validates if the provided URL is acceptable for image processing
func (v *URLValidator) ValidateImageURL(imageURL string) error {
	if strings.TrimSpace(imageURL) == "" {
		return apperrors.NewValidationError("URL cannot be empty", nil)
	}

	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return apperrors.NewValidationError("Invalid URL format", err)
	}

	if !v.isSchemeAllowed(parsedURL.Scheme) {
		return apperrors.NewValidationError("URL scheme not allowed", nil)
	}

	if parsedURL.Host == "" {
		return apperrors.NewValidationError("URL must have a valid host", nil)
	}

	if len(v.allowedHosts) > 0 && !v.isHostAllowed(parsedURL.Host) {
		return apperrors.NewValidationError("URL host not allowed", nil)
	}

	return nil
}

// isSchemeAllowed checks if the URL scheme is in the allowed list
func (v *URLValidator) isSchemeAllowed(scheme string) bool {
	for _, allowed := range v.allowedSchemes {
		if scheme == allowed {
			return true
		}
	}
	return false
}

// isHostAllowed checks if the URL host is in the allowed list
// Returns true if no host restrictions are set (empty allowedHosts)
func (v *URLValidator) isHostAllowed(host string) bool {
	if len(v.allowedHosts) == 0 {
		return true
	}
	for _, allowed := range v.allowedHosts {
		if host == allowed {
			return true
		}
	}
	return false
}

// LocationValidator classifies image locations: local paths and file://
// URLs, http(s) URLs and Azure Blob locations
type LocationValidator struct {
	urls *URLValidator
}

// NewLocationValidator creates a location validator that accepts any HTTP host
func NewLocationValidator() *LocationValidator {
	return &LocationValidator{urls: NewURLValidator()}
}

// NewLocationValidatorWithURLs creates a location validator using urls for http(s) locations
func NewLocationValidatorWithURLs(urls *URLValidator) *LocationValidator {
	return &LocationValidator{urls: urls}
}

// Classify validates location and reports which kind of source it names
func (v *LocationValidator) Classify(location string) (LocationKind, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return "", apperrors.NewValidationError("location cannot be empty", nil)
	}

	scheme, rest, hasScheme := strings.Cut(location, "://")
	if !hasScheme {
		return LocationLocal, nil
	}

	switch strings.ToLower(scheme) {
	case "file":
		if rest == "" {
			return "", apperrors.NewValidationError("file URL must have a path", nil)
		}
		return LocationLocal, nil
	case "azblob":
		container, blob, _ := strings.Cut(rest, "/")
		if container == "" || blob == "" {
			return "", apperrors.NewValidationError("blob location must name a container and a blob", nil)
		}
		return LocationAzure, nil
	case "http", "https":
		if err := v.urls.ValidateImageURL(location); err != nil {
			return "", err
		}
		parsed, _ := url.Parse(location)
		if strings.HasSuffix(strings.ToLower(parsed.Hostname()), azureBlobHostSuffix) {
			return LocationAzure, nil
		}
		return LocationHTTP, nil
	default:
		return "", apperrors.NewValidationError("URL scheme not allowed", nil).WithDetails(scheme)
	}
}
