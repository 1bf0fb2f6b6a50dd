package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess        = 0 // Every image was analyzed
	ExitDetectionError = 1 // One or more images could not be analyzed
	ExitError          = 2 // Configuration or runtime error
)

// DetectionFailureError reports that the run finished but some images
// produced no report
type DetectionFailureError struct {
	Failed int
	Total  int
}

func (e *DetectionFailureError) Error() string {
	return fmt.Sprintf("%d of %d image(s) could not be analyzed", e.Failed, e.Total)
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		var detectionErr *DetectionFailureError
		if errors.As(err, &detectionErr) {
			os.Exit(ExitDetectionError)
		}
		os.Exit(ExitError)
	}
}
