package bytesource

import (
	"context"
	"io"
)

// Metadata reports what is known about a source without consuming its
// stream. Size is absent when the transport cannot cheaply determine it
// (e.g. chunked HTTP responses with no Content-Length).
type Metadata struct {
	Size        *int64
	ContentType string
	OriginKind  Kind
}

// Source produces a lazy, one-shot sequence of byte chunks from a backing
// store. Open is single-use: a fresh Source (or a fresh Open call producing
// a fresh body) is required for each additional pass over the same
// specifier, per the invariant that pass 1 and pass 2 each hold their own
// transport connection.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	Metadata(ctx context.Context) (Metadata, error)
}

// Options configures transport-level behavior that the specifier itself
// does not carry (redirect and timeout policy, chunk sizing hints).
type Options struct {
	// MaxRedirects bounds HTTP redirect following. Zero means the default
	// of 5, matching the external interface's documented default.
	MaxRedirects int
	// ReadTimeout bounds how long a single chunk read may block before
	// surfacing TIMEOUT. Zero means the default of 30s.
	ReadTimeout int64 // nanoseconds; see time.Duration
	// ChunkSize is an upper bound hint for the raw read buffer used by
	// callers of Open's returned reader. It does not change Source's own
	// behavior; it is threaded through from the CLI's --chunk-size flag to
	// whatever first wraps the raw stream (the unzipper).
	ChunkSize int
}

// Open resolves a Specifier to a concrete Source using default Options.
func Open(spec Specifier) (Source, error) {
	return OpenWithOptions(spec, Options{})
}

// OpenWithOptions resolves a Specifier to a concrete Source.
func OpenWithOptions(spec Specifier, opts Options) (Source, error) {
	switch spec.Kind {
	case KindLocal:
		return &localSource{path: spec.Path}, nil
	case KindHTTP:
		return newHTTPSource(spec, opts), nil
	case KindObjectStore:
		return newObjectStoreSource(spec, opts), nil
	default:
		return nil, unsupportedSourceErr(spec)
	}
}
