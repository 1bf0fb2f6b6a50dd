package models

// DetectionRequest represents a request for morph detection of a stored image.
// Exactly one of URL or Path must be set.
type DetectionRequest struct {
	URL  string `json:"url,omitempty"`
	Path string `json:"path,omitempty"`
}

// Location returns whichever source field is populated
func (r DetectionRequest) Location() string {
	if r.URL != "" {
		return r.URL
	}
	return r.Path
}

// ErrorResponse represents an error response.
// Success is always false so callers can treat it like a failed report.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// BatchItem is one entry of a batch detection run
type BatchItem struct {
	Location string             `json:"location"`
	Result   *DetectionResponse `json:"result,omitempty"`
	Error    string             `json:"error,omitempty"`
}
