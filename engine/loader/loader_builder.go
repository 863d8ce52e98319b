package loader

import (
	"net/http"
	"time"
)

type LoaderBuilderOption func(*loader)

// WithHTTPClient sets the client used to fetch remote assets and their resources.
//
// Parameters:
//   - client: the HTTP client
//
// Returns:
//   - LoaderBuilderOption: a function that sets the client
func WithHTTPClient(client *http.Client) LoaderBuilderOption {
	return func(l *loader) {
		if client != nil {
			l.client = client
		}
	}
}

// WithUploader sets the GPU uploader that receives every loaded scene.
//
// Parameters:
//   - u: the uploader, typically the renderer
//
// Returns:
//   - LoaderBuilderOption: a function that sets the uploader
func WithUploader(u Uploader) LoaderBuilderOption {
	return func(l *loader) {
		l.uploader = u
	}
}

// WithMaxTextureSize caps the longest side of decoded textures. Larger images
// are downscaled before upload.
//
// Parameters:
//   - size: the maximum width or height in pixels
//
// Returns:
//   - LoaderBuilderOption: a function that sets the cap
func WithMaxTextureSize(size int) LoaderBuilderOption {
	return func(l *loader) {
		if size > 0 {
			l.maxTextureSize = size
		}
	}
}

// WithTimeout bounds each Load call. Zero leaves only the caller's context.
//
// Parameters:
//   - timeout: the ceiling for fetch plus decode
//
// Returns:
//   - LoaderBuilderOption: a function that sets the timeout
func WithTimeout(timeout time.Duration) LoaderBuilderOption {
	return func(l *loader) {
		l.timeout = timeout
	}
}
