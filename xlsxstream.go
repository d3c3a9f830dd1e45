// Package xlsxstream converts Office Open XML SpreadsheetML workbooks
// (.xlsx) into row-oriented output without ever materializing the whole
// workbook in memory. It pulls bytes from a local file, an HTTP URL, or an
// S3 object, decompresses the package's ZIP archive forward-only, resolves
// the shared string table and worksheet directory in one pass, then streams
// the selected worksheet's rows in a second pass.
//
// Typical use:
//
//	r, err := xlsxstream.New("s3://my-bucket/reports/q3.xlsx", xlsxstream.WithSheetName("Data"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	n, err := r.ToCSV(context.Background(), os.Stdout)
//	if err != nil {
//		log.Fatal(err)
//	}
//	log.Printf("wrote %d rows", n)
//
// Or pull rows directly:
//
//	for row, err := range r.Rows(ctx) {
//		if err != nil {
//			log.Fatal(err)
//		}
//		fmt.Println(row)
//	}
//
// A Reader is not reusable across source specifiers that are themselves
// single-use (e.g. a caller-supplied one-shot body); construct a fresh
// Reader per invocation.
package xlsxstream

import (
	"context"
	"io"
	"iter"

	"github.com/bsirb/xlsxstream/bytesource"
	"github.com/bsirb/xlsxstream/internal/xerr"
	"github.com/bsirb/xlsxstream/internal/ziparchive"
	"github.com/bsirb/xlsxstream/workbookindex"
	"github.com/bsirb/xlsxstream/worksheet"
)

// DefaultChunkSize is the default upper bound for the raw read buffer
// sitting between the byte source and the unzipper, matching the external
// interface's --chunk-size default.
const DefaultChunkSize = 16 * 1024 * 1024

// minBufferSize and maxBufferSize bound the actual bufio window used ahead
// of decompression. DefaultChunkSize is a ceiling the caller may configure,
// not a target: honoring it literally (allocating up to 16 MiB per open)
// would undermine the whole point of streaming, so the real buffer stays in
// the tens-of-KiB range the resource model describes as steady state, and
// ChunkSize only ever clamps it smaller for callers who want an even
// tighter cap.
const (
	minBufferSize = 4 * 1024
	maxBufferSize = 64 * 1024
)

// Reader is a constructed handle over one source specifier: the Reader
// Facade's "construct" operation.
type Reader struct {
	spec      bytesource.Specifier
	sheetName string
	chunkSize int
	observer  xerr.Observer

	lastIndex *workbookindex.Index
}

// Option configures a Reader at construction time.
type Option func(*Reader)

// WithSheetName selects a worksheet by name; absent, the first sheet in
// workbook.xml document order is used.
func WithSheetName(name string) Option {
	return func(r *Reader) { r.sheetName = name }
}

// WithChunkSize sets the upper bound for the raw read buffer ahead of
// decompression in pass 2 (the worksheet stream). Pass 1 (the package
// index) always reads through the unzipper's default 32 KiB buffer.
func WithChunkSize(bytes int) Option {
	return func(r *Reader) { r.chunkSize = bytes }
}

// WithObserver supplies a sink for non-fatal warnings.
func WithObserver(obs xerr.Observer) Option {
	return func(r *Reader) { r.observer = obs }
}

// New constructs a Reader from a source URI using the grammar in the
// external interface: "s3://bucket/key", "http(s)://...", or a filesystem
// path.
func New(uri string, opts ...Option) (*Reader, error) {
	spec, err := bytesource.ParseURI(uri)
	if err != nil {
		return nil, err
	}
	return NewFromSpecifier(spec, opts...)
}

// NewFromSpecifier constructs a Reader directly from a Specifier, for
// callers that already have one (e.g. library embedders bypassing URI
// parsing).
func NewFromSpecifier(spec bytesource.Specifier, opts ...Option) (*Reader, error) {
	r := &Reader{spec: spec, chunkSize: DefaultChunkSize}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *Reader) bufferSize() int {
	size := r.chunkSize
	if size <= 0 || size > maxBufferSize {
		size = maxBufferSize
	}
	if size < minBufferSize {
		size = minBufferSize
	}
	return size
}

func (r *Reader) openSource(ctx context.Context) (bytesource.Source, io.ReadCloser, error) {
	src, err := bytesource.OpenWithOptions(r.spec, bytesource.Options{ChunkSize: r.chunkSize})
	if err != nil {
		return nil, nil, err
	}
	body, err := src.Open(ctx)
	if err != nil {
		return nil, nil, err
	}
	return src, body, nil
}

// Rows runs the two-pass orchestration and returns a lazy sequence of dense
// rows: stream_rows. Pass 1 builds the Package Index from a fresh byte
// source; pass 2 opens a second, independent byte source to stream the
// selected worksheet. Both sources are released before Rows returns control
// to the caller, on every exit path.
func (r *Reader) Rows(ctx context.Context) iter.Seq2[[]string, error] {
	return func(yield func([]string, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(nil, xerr.Wrap(xerr.Timeout, "cancelled before pass 1", err))
			return
		}

		_, body1, err := r.openSource(ctx)
		if err != nil {
			yield(nil, err)
			return
		}
		idx, err := workbookindex.Build(body1, r.observer)
		body1.Close()
		if err != nil {
			yield(nil, err)
			return
		}
		r.lastIndex = idx

		sheet, ok := r.selectSheet(idx)
		if !ok {
			yield(nil, xerr.New(xerr.SheetNotFound, r.sheetName))
			return
		}

		if err := ctx.Err(); err != nil {
			yield(nil, xerr.Wrap(xerr.Timeout, "cancelled before pass 2", err))
			return
		}

		_, body2, err := r.openSource(ctx)
		if err != nil {
			yield(nil, err)
			return
		}
		defer body2.Close()

		archive := ziparchive.NewArchiveSize(body2, r.bufferSize())
		for {
			if err := ctx.Err(); err != nil {
				yield(nil, xerr.Wrap(xerr.Timeout, "cancelled during pass 2", err))
				return
			}
			hdr, member, err := archive.Next()
			if err == io.EOF {
				// The index was built from the same specifier; the
				// worksheet it named should always still be there.
				yield(nil, xerr.New(xerr.SheetNotFound, sheet.Target))
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if hdr.Name != sheet.Target {
				continue
			}
			streamer := worksheet.New(member, idx.Strings)
			for row, rowErr := range streamer.Rows() {
				if !yield(row, rowErr) {
					return
				}
				if rowErr != nil {
					return
				}
			}
			return
		}
	}
}

func (r *Reader) selectSheet(idx *workbookindex.Index) (workbookindex.Sheet, bool) {
	if r.sheetName != "" {
		return idx.ByName(r.sheetName)
	}
	return idx.First()
}
