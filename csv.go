package xlsxstream

import (
	"context"
	"encoding/csv"
	"io"

	"github.com/bsirb/xlsxstream/internal/xerr"
)

// ToCSV runs stream_rows and serializes each dense row to w as standard CSV
// (comma delimiter, CRLF terminator, double-quote enclosing per
// encoding/csv's own RFC 4180 behavior) and returns the row count. A dense
// row's own width already carries its trailing empty cells, so no
// additional cross-row padding is applied here; rows are written exactly as
// the worksheet streamer emits them.
func (r *Reader) ToCSV(ctx context.Context, w io.Writer) (int, error) {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true

	count := 0
	for row, err := range r.Rows(ctx) {
		if err != nil {
			return count, err
		}
		if err := cw.Write(row); err != nil {
			return count, xerr.Wrap(xerr.SinkIO, "writing CSV row", err)
		}
		count++
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return count, xerr.Wrap(xerr.SinkIO, "flushing CSV output", err)
	}
	return count, nil
}
