package worksheet

import (
	"fmt"
	"strconv"

	"github.com/bsirb/xlsxstream/internal/xerr"
)

// ParseAddress decodes a cell address like "AA10" into zero-based column and
// row indices. The alphabetic prefix is a bijective base-26 numeral (A=1,
// ..., Z=26, AA=27, ...), decoded to an integer and reduced by one; the
// numeric suffix is the declared 1-based row number, also reduced by one.
func ParseAddress(ref string) (col, row int, err error) {
	split := len(ref)
	for split > 0 && ref[split-1] >= '0' && ref[split-1] <= '9' {
		split--
	}
	letters, digits := ref[:split], ref[split:]
	if letters == "" || digits == "" {
		return 0, 0, xerr.New(xerr.BadCellAddress, ref)
	}
	col, err = ColumnIndex(letters)
	if err != nil {
		return 0, 0, xerr.Wrap(xerr.BadCellAddress, ref, err)
	}
	r, err := strconv.Atoi(digits)
	if err != nil || r < 1 {
		return 0, 0, xerr.New(xerr.BadCellAddress, ref)
	}
	return col, r - 1, nil
}

// ColumnIndex decodes the bijective base-26 column letters ("A".."Z",
// "AA".."ZZ", "AAA"...) into a zero-based column index.
func ColumnIndex(letters string) (int, error) {
	if letters == "" {
		return 0, fmt.Errorf("empty column letters")
	}
	value := 0
	for i := 0; i < len(letters); i++ {
		c := letters[i]
		if c < 'A' || c > 'Z' {
			return 0, fmt.Errorf("invalid column letter %q in %q", c, letters)
		}
		value = value*26 + int(c-'A'+1)
	}
	return value - 1, nil
}
