package bytesource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/bsirb/xlsxstream/internal/xerr"
)

type localSource struct {
	path string
}

func (s *localSource) Open(ctx context.Context) (io.ReadCloser, error) {
	f, err := os.Open(s.path)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, xerr.Wrap(xerr.NotFound, s.path, err)
		case errors.Is(err, fs.ErrPermission):
			return nil, xerr.Wrap(xerr.PermissionDenied, s.path, err)
		default:
			return nil, xerr.Wrap(xerr.NotFound, s.path, err)
		}
	}
	return f, nil
}

func (s *localSource) Metadata(ctx context.Context) (Metadata, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Metadata{}, xerr.Wrap(xerr.NotFound, s.path, err)
		}
		return Metadata{}, xerr.Wrap(xerr.PermissionDenied, s.path, err)
	}
	size := info.Size()
	return Metadata{Size: &size, OriginKind: KindLocal}, nil
}

func unsupportedSourceErr(spec Specifier) error {
	return xerr.New(xerr.UnsupportedSource, fmt.Sprintf("unrecognized source kind %v", spec.Kind))
}
