// Package bytesource implements the Byte Source abstraction: a closed tagged
// union over the transports a workbook can be read from (local filesystem,
// HTTP, and S3-compatible object storage), each exposing the same one-shot,
// forward-only streaming contract. Dispatch is by tag (Kind), not by an open
// interface hierarchy — adding a transport means extending this union at one
// point, not registering a new implementation somewhere else in the tree.
package bytesource

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bsirb/xlsxstream/internal/xerr"
)

// Kind identifies which transport a Specifier resolves to.
type Kind int

const (
	KindLocal Kind = iota
	KindHTTP
	KindObjectStore
)

func (k Kind) String() string {
	switch k {
	case KindLocal:
		return "local"
	case KindHTTP:
		return "http"
	case KindObjectStore:
		return "object_store"
	default:
		return "unknown"
	}
}

// Specifier is a tagged value carrying enough information to open one or
// more independent byte streams against the same logical artifact. A single
// Specifier is reused across both passes of the reader facade's two-pass
// orchestration — each pass calls Open independently.
type Specifier struct {
	Kind Kind

	// Local
	Path string

	// HTTP
	URL     string
	Headers map[string]string

	// Object store
	Bucket string
	Key    string
	Region string
}

var bucketPattern = regexp.MustCompile(`^[a-z0-9.\-]{3,63}$`)

// ParseURI applies the source URI grammar: "s3://bucket/key" selects the
// object store transport, "http://" or "https://" selects HTTP, and
// anything else is treated as a filesystem path.
func ParseURI(uri string) (Specifier, error) {
	switch {
	case strings.HasPrefix(uri, "s3://"):
		rest := strings.TrimPrefix(uri, "s3://")
		slash := strings.IndexByte(rest, '/')
		if slash < 0 {
			return Specifier{}, xerr.New(xerr.UnsupportedSource, fmt.Sprintf("s3 URI missing key: %q", uri))
		}
		bucket, key := rest[:slash], rest[slash+1:]
		if !bucketPattern.MatchString(bucket) {
			return Specifier{}, xerr.New(xerr.UnsupportedSource, fmt.Sprintf("invalid s3 bucket name: %q", bucket))
		}
		if key == "" {
			return Specifier{}, xerr.New(xerr.UnsupportedSource, fmt.Sprintf("s3 URI missing key: %q", uri))
		}
		return Specifier{Kind: KindObjectStore, Bucket: bucket, Key: key}, nil
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		return Specifier{Kind: KindHTTP, URL: uri}, nil
	case uri == "":
		return Specifier{}, xerr.New(xerr.UnsupportedSource, "empty source")
	default:
		return Specifier{Kind: KindLocal, Path: uri}, nil
	}
}
