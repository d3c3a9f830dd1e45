package xlsxstream

import (
	"context"

	"github.com/bsirb/xlsxstream/bytesource"
)

// Metadata is the result of the get_metadata operation: facts about the
// source and, once a pass has run, the sheet names discovered in the
// package index.
type Metadata struct {
	OriginKind  bytesource.Kind
	Size        *int64
	ContentType string
	// SheetNames is nil until Rows or ToCSV has run at least once on this
	// Reader; the worksheet directory is only known after pass 1.
	SheetNames []string
}

// Metadata reports what is known about the source without running a full
// pass. Size and ContentType reflect the transport's own metadata() call
// (e.g. HTTP Content-Length, S3 HeadObject); SheetNames is populated only if
// a previous Rows/ToCSV call on this Reader already built the package index.
func (r *Reader) Metadata(ctx context.Context) (Metadata, error) {
	src, err := bytesource.OpenWithOptions(r.spec, bytesource.Options{ChunkSize: r.chunkSize})
	if err != nil {
		return Metadata{}, err
	}
	md, err := src.Metadata(ctx)
	if err != nil {
		return Metadata{}, err
	}
	result := Metadata{
		OriginKind:  md.OriginKind,
		Size:        md.Size,
		ContentType: md.ContentType,
	}
	if r.lastIndex != nil {
		names := make([]string, len(r.lastIndex.Sheets))
		for i, s := range r.lastIndex.Sheets {
			names[i] = s.Name
		}
		result.SheetNames = names
	}
	return result, nil
}
