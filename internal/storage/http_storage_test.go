package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anime-shed/morph-inspector-go/pkg/validation"
)

// encodePNG returns a small solid PNG for serving from test servers
func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{90, 120, 150, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestFetcher() *HTTPImageFetcher {
	fetcher := NewHTTPImageFetcher(5*time.Second, Limits{}, nil)
	fetcher.retryDelay = time.Millisecond
	return fetcher
}

func TestHTTPImageFetcher_RetryLogic(t *testing.T) {
	tests := []struct {
		name          string
		responses     []int // Status codes to return in sequence
		expectRetries int   // Expected number of requests
		expectError   bool
		errorContains string
	}{
		{
			name:          "Success on first attempt",
			responses:     []int{200},
			expectRetries: 1,
		},
		{
			name:          "Success on second attempt after 5xx",
			responses:     []int{500, 200},
			expectRetries: 2,
		},
		{
			name:          "4xx client error - no retry",
			responses:     []int{403},
			expectRetries: 1,
			expectError:   true,
			errorContains: "client error: status code 403",
		},
		{
			name:          "4xx after 5xx - should retry until 4xx then stop",
			responses:     []int{500, 404},
			expectRetries: 2,
			expectError:   true,
			errorContains: "client error: status code 404",
		},
		{
			name:          "All 5xx errors - retry all attempts",
			responses:     []int{500, 502, 503},
			expectRetries: 3,
			expectError:   true,
			errorContains: "server error: status code 503",
		},
	}

	pngData := encodePNG(t, 4, 3)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var requestCount atomic.Int32

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := int(requestCount.Add(1)) - 1
				if n >= len(tt.responses) {
					w.WriteHeader(http.StatusInternalServerError)
					return
				}
				if tt.responses[n] == http.StatusOK {
					w.Header().Set("Content-Type", "image/png")
					w.Write(pngData)
					return
				}
				w.WriteHeader(tt.responses[n])
				fmt.Fprintf(w, "Error %d", tt.responses[n])
			}))
			defer server.Close()

			img, meta, err := newTestFetcher().FetchImage(context.Background(), server.URL)

			assert.Equal(t, int32(tt.expectRetries), requestCount.Load())
			if tt.expectError {
				require.Error(t, err)
				assert.True(t, strings.Contains(err.Error(), tt.errorContains), err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 4, img.Bounds().Dx())
			assert.Equal(t, "png", meta.Format)
			assert.Equal(t, "image/png", meta.ContentType)
			assert.Equal(t, int64(len(pngData)), meta.ContentLength)
		})
	}
}

func TestHTTPImageFetcher_NotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	_, _, err := newTestFetcher().FetchImage(context.Background(), server.URL)
	assert.True(t, errors.Is(err, ErrImageNotFound))
}

func TestHTTPImageFetcher_NetworkError_Retry(t *testing.T) {
	var requestCount atomic.Int32
	pngData := encodePNG(t, 2, 2)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requestCount.Add(1) < 3 {
			// Simulate network error by closing connection
			if hj, ok := w.(http.Hijacker); ok {
				conn, _, _ := hj.Hijack()
				conn.Close()
			}
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngData)
	}))
	defer server.Close()

	_, _, err := newTestFetcher().FetchImage(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Equal(t, int32(3), requestCount.Load())
}

func TestHTTPImageFetcher_Undecodable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("definitely not an image"))
	}))
	defer server.Close()

	_, _, err := newTestFetcher().FetchImage(context.Background(), server.URL)
	assert.True(t, errors.Is(err, ErrUndecodableImage))
}

func TestHTTPImageFetcher_TooLarge(t *testing.T) {
	pngData := encodePNG(t, 32, 32)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(pngData)
	}))
	defer server.Close()

	fetcher := NewHTTPImageFetcher(5*time.Second, Limits{MaxBytes: 16}, nil)
	_, _, err := fetcher.FetchImage(context.Background(), server.URL)
	assert.True(t, errors.Is(err, ErrImageTooLarge))
}

func TestHTTPImageFetcher_PixelLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngHeader(100_000, 100_000))
	}))
	defer server.Close()

	fetcher := newTestFetcher()
	_, _, err := fetcher.FetchImage(context.Background(), server.URL)
	assert.True(t, errors.Is(err, ErrImageTooLarge), "got %v", err)
}

func TestHTTPImageFetcher_RedirectValidation(t *testing.T) {
	pngData := encodePNG(t, 2, 2)

	var elsewhereHits atomic.Int32
	elsewhere := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		elsewhereHits.Add(1)
		w.Write(pngData)
	}))
	defer elsewhere.Close()

	var originHits atomic.Int32
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		originHits.Add(1)
		switch r.URL.Path {
		case "/image.png":
			w.Write(pngData)
		case "/to-ftp":
			http.Redirect(w, r, "ftp://example.com/image.png", http.StatusFound)
		case "/to-elsewhere":
			http.Redirect(w, r, elsewhere.URL+"/image.png", http.StatusFound)
		case "/to-self":
			http.Redirect(w, r, "/image.png", http.StatusMovedPermanently)
		}
	}))
	defer origin.Close()

	originHost := strings.TrimPrefix(origin.URL, "http://")
	urls := validation.NewURLValidatorWithOptions([]string{"http", "https"}, []string{originHost})

	tests := []struct {
		name      string
		path      string
		wantErr   bool
		wantHits  int32
		elsewhere int32
	}{
		{"same host redirect", "/to-self", false, 2, 0},
		{"disallowed scheme", "/to-ftp", true, 1, 0},
		{"disallowed host", "/to-elsewhere", true, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			originHits.Store(0)
			elsewhereHits.Store(0)

			fetcher := NewHTTPImageFetcher(5*time.Second, Limits{}, urls)
			fetcher.retryDelay = time.Millisecond

			_, _, err := fetcher.FetchImage(context.Background(), origin.URL+tt.path)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrRedirectRejected), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantHits, originHits.Load(), "rejected redirects are not retried")
			assert.Equal(t, tt.elsewhere, elsewhereHits.Load())
		})
	}
}

func TestHTTPImageFetcher_InvalidURL(t *testing.T) {
	_, _, err := newTestFetcher().FetchImage(context.Background(), "http://[::1]:namedport")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid URL")
}

func TestHTTPImageFetcher_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	fetcher := newTestFetcher()
	fetcher.retryDelay = time.Hour
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, _, err := fetcher.FetchImage(ctx, server.URL)
	assert.True(t, errors.Is(err, context.Canceled))
}
