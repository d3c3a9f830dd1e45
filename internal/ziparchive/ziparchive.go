// Package ziparchive implements a forward-only ZIP reader: it consumes an
// io.Reader exactly once, front to back, and emits members in the order
// their local file headers appear. It never seeks and never looks at the
// central directory, which is the opposite tradeoff from the standard
// library's archive/zip (whose NewReader/OpenReader require an io.ReaderAt
// so they can read the central directory first). That tradeoff is forced
// here: a ZIP arriving over an HTTP response body or an S3 object body is
// not seekable, and re-reading it from the start for every member lookup is
// not an option either.
//
// Supported: store (method 0) and deflate (method 8), ZIP64 member sizes
// carried in the local header's extra field, and both UTF-8 and legacy
// (ISO-8859-1) member-name encodings. A stored member must carry its sizes
// in the local header; a data descriptor is read only after a deflated
// member, and only in its 32-bit-size form, so a ZIP64 data descriptor is
// not read correctly. Unsupported: encryption, exotic compression methods,
// stored members with a data descriptor, and split/spanned archives — all
// surfaced as taxonomy errors rather than attempted.
package ziparchive

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"golang.org/x/text/encoding/charmap"

	"github.com/bsirb/xlsxstream/internal/xerr"
)

const (
	localFileHeaderSignature = 0x04034b50
	dataDescriptorSignature  = 0x08074b50
	centralDirSignature      = 0x02014b50
	eocdSignature            = 0x06054b50
	zip64EOCDSignature       = 0x06064b50
	spanningMarkerSignature  = 0x08074b50 // identical to the data descriptor signature by design (APPNOTE 8.5.3)

	zip64ExtraFieldID = 0x0001

	flagEncrypted      = 0x0001
	flagDataDescriptor = 0x0008
	flagUTF8Name       = 0x0800
)

const (
	methodStore   = 0
	methodDeflate = 8
)

// Header describes one archive member as announced by its local file header.
type Header struct {
	Name             string
	Method           uint16
	CRC32            uint32
	CompressedSize   uint64
	UncompressedSize uint64
}

// Archive reads ZIP members in physical order from a single forward stream.
type Archive struct {
	r        *bufio.Reader
	current  *memberReader
	sticky   error
	finished bool
}

// defaultBufferSize matches the ~32 KiB decompressor window the resource
// model budgets for.
const defaultBufferSize = 32 * 1024

// NewArchive wraps a forward-only byte stream as a ZIP member sequence,
// using the default internal buffer size.
func NewArchive(r io.Reader) *Archive {
	return NewArchiveSize(r, defaultBufferSize)
}

// NewArchiveSize is like NewArchive but lets the caller tune the internal
// read buffer, e.g. from a configured chunk-size upper bound.
func NewArchiveSize(r io.Reader, bufSize int) *Archive {
	if bufSize <= 0 {
		bufSize = defaultBufferSize
	}
	a := &Archive{r: bufio.NewReaderSize(r, bufSize)}
	if peek, err := a.r.Peek(4); err == nil && binary.LittleEndian.Uint32(peek) == spanningMarkerSignature {
		a.sticky = xerr.New(xerr.SplitArchive, "archive begins with a disk-spanning marker")
	}
	return a
}

// Next advances to the next member, discarding any unread bytes of the
// current one first. It returns io.EOF once the central directory (or end of
// central directory record) is reached; there is no need to read the central
// directory itself since this reader never uses it for navigation.
func (a *Archive) Next() (*Header, io.Reader, error) {
	if a.sticky != nil {
		return nil, nil, a.sticky
	}
	if a.finished {
		return nil, nil, io.EOF
	}
	if a.current != nil {
		if err := a.current.discard(); err != nil {
			return nil, nil, err
		}
		a.current = nil
	}

	sig, err := readUint32(a.r)
	if err != nil {
		if err == io.EOF {
			a.finished = true
			return nil, nil, io.EOF
		}
		return nil, nil, xerr.Wrap(xerr.UnexpectedEOF, "reading next member signature", err)
	}
	switch sig {
	case localFileHeaderSignature:
		// fall through
	case centralDirSignature, eocdSignature, zip64EOCDSignature:
		a.finished = true
		return nil, nil, io.EOF
	default:
		return nil, nil, xerr.New(xerr.UnexpectedEOF, fmt.Sprintf("unexpected signature %#08x", sig))
	}

	hdr, mr, err := a.readLocalFile()
	if err != nil {
		return nil, nil, err
	}
	a.current = mr
	return hdr, mr, nil
}

func (a *Archive) readLocalFile() (*Header, *memberReader, error) {
	r := a.r
	fields, err := readLocalHeaderFields(r)
	if err != nil {
		return nil, nil, xerr.Wrap(xerr.UnexpectedEOF, "reading local file header", err)
	}

	name := make([]byte, fields.nameLen)
	if _, err := io.ReadFull(r, name); err != nil {
		return nil, nil, xerr.Wrap(xerr.UnexpectedEOF, "reading member name", err)
	}
	extra := make([]byte, fields.extraLen)
	if _, err := io.ReadFull(r, extra); err != nil {
		return nil, nil, xerr.Wrap(xerr.UnexpectedEOF, "reading extra field", err)
	}

	memberName := decodeName(name, fields.flags&flagUTF8Name != 0)

	crc := fields.crc32
	compSize := uint64(fields.compressedSize)
	uncompSize := uint64(fields.uncompressedSize)
	if fields.compressedSize == 0xFFFFFFFF || fields.uncompressedSize == 0xFFFFFFFF {
		z64, err := parseZip64Extra(extra, fields.uncompressedSize == 0xFFFFFFFF, fields.compressedSize == 0xFFFFFFFF)
		if err != nil {
			return nil, nil, xerr.Wrap(xerr.UnexpectedEOF, "reading ZIP64 extra field", err)
		}
		if z64.uncompressedSize != nil {
			uncompSize = *z64.uncompressedSize
		}
		if z64.compressedSize != nil {
			compSize = *z64.compressedSize
		}
	}

	if fields.flags&flagEncrypted != 0 {
		return nil, nil, xerr.New(xerr.EncryptedEntry, memberName)
	}
	if fields.method != methodStore && fields.method != methodDeflate {
		return nil, nil, xerr.New(xerr.UnsupportedMethod, fmt.Sprintf("%s: method %d", memberName, fields.method))
	}

	hasDescriptor := fields.flags&flagDataDescriptor != 0
	if hasDescriptor && fields.method == methodStore {
		// A store-method entry with unknown size at the local header would
		// require scanning forward for the data descriptor signature, since
		// stored data has no self-terminating marker the way deflate does.
		// OOXML producers do not emit this combination in practice (content
		// length is always known before the member is written), so it is
		// treated as unsupported rather than implemented.
		return nil, nil, xerr.New(xerr.UnsupportedMethod, fmt.Sprintf("%s: stored entry with streamed data descriptor", memberName))
	}

	header := &Header{
		Name:             memberName,
		Method:           fields.method,
		CRC32:            crc,
		CompressedSize:   compSize,
		UncompressedSize: uncompSize,
	}

	var raw io.Reader
	switch fields.method {
	case methodStore:
		if hasDescriptor {
			raw = r // unreachable given the guard above, kept for clarity
		} else {
			raw = io.LimitReader(r, int64(compSize))
		}
	case methodDeflate:
		if hasDescriptor {
			raw = newFlateReader(r)
		} else {
			raw = newFlateReader(io.LimitReader(r, int64(compSize)))
		}
	}

	mr := &memberReader{
		header:        header,
		raw:           raw,
		crc:           crc32.NewIEEE(),
		expectedCRC:   crc,
		hasDescriptor: hasDescriptor,
		src:           r,
	}
	return header, mr, nil
}

type localHeaderFields struct {
	flags            uint16
	method           uint16
	crc32            uint32
	compressedSize   uint32
	uncompressedSize uint32
	nameLen          uint16
	extraLen         uint16
}

func readLocalHeaderFields(r io.Reader) (localHeaderFields, error) {
	var f localHeaderFields
	buf := make([]byte, 26)
	if _, err := io.ReadFull(r, buf); err != nil {
		return f, err
	}
	// buf layout (after the 4-byte signature, already consumed):
	// version(2) flags(2) method(2) modtime(2) moddate(2) crc32(4)
	// compressedSize(4) uncompressedSize(4) nameLen(2) extraLen(2)
	f.flags = binary.LittleEndian.Uint16(buf[2:4])
	f.method = binary.LittleEndian.Uint16(buf[4:6])
	f.crc32 = binary.LittleEndian.Uint32(buf[10:14])
	f.compressedSize = binary.LittleEndian.Uint32(buf[14:18])
	f.uncompressedSize = binary.LittleEndian.Uint32(buf[18:22])
	f.nameLen = binary.LittleEndian.Uint16(buf[22:24])
	f.extraLen = binary.LittleEndian.Uint16(buf[24:26])
	return f, nil
}

type zip64Fields struct {
	uncompressedSize *uint64
	compressedSize   *uint64
}

func parseZip64Extra(extra []byte, wantUncompressed, wantCompressed bool) (zip64Fields, error) {
	var z zip64Fields
	for len(extra) >= 4 {
		id := binary.LittleEndian.Uint16(extra[0:2])
		size := binary.LittleEndian.Uint16(extra[2:4])
		if len(extra) < int(4+size) {
			return z, fmt.Errorf("truncated extra field record")
		}
		data := extra[4 : 4+size]
		if id == zip64ExtraFieldID {
			off := 0
			if wantUncompressed {
				if len(data) < off+8 {
					return z, fmt.Errorf("zip64 extra field too short for uncompressed size")
				}
				v := binary.LittleEndian.Uint64(data[off : off+8])
				z.uncompressedSize = &v
				off += 8
			}
			if wantCompressed {
				if len(data) < off+8 {
					return z, fmt.Errorf("zip64 extra field too short for compressed size")
				}
				v := binary.LittleEndian.Uint64(data[off : off+8])
				z.compressedSize = &v
				off += 8
			}
			return z, nil
		}
		extra = extra[4+size:]
	}
	return z, nil
}

func decodeName(raw []byte, isUTF8 bool) string {
	if isUTF8 {
		return string(raw)
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}
