package ziparchive

import (
	"compress/flate"
	"encoding/binary"
	"fmt"
	"hash"
	"io"

	"github.com/bsirb/xlsxstream/internal/xerr"
)

// memberReader streams one decompressed archive member and verifies its
// CRC-32 once the underlying stream reports EOF. If the caller abandons the
// member early, Archive.Next discards the remainder through discard, which
// still runs the same verification path.
type memberReader struct {
	header        *Header
	raw           io.Reader // decompression stream (possibly self-terminating, for deflate)
	closer        io.Closer
	crc           hash.Hash32
	expectedCRC   uint32
	hasDescriptor bool
	src           io.Reader // underlying archive stream, for reading the trailing data descriptor

	done      bool
	finalErr  error
	pendingOK bool // true once raw hit EOF and verification succeeded
}

func newFlateReader(r io.Reader) io.Reader {
	return flate.NewReader(r)
}

func (m *memberReader) Read(p []byte) (int, error) {
	if m.done {
		if m.finalErr != nil {
			return 0, m.finalErr
		}
		return 0, io.EOF
	}

	n, err := m.raw.Read(p)
	if n > 0 {
		m.crc.Write(p[:n])
	}
	if err == nil {
		return n, nil
	}
	if err != io.EOF {
		return n, xerr.Wrap(xerr.UnexpectedEOF, fmt.Sprintf("member %q", m.header.Name), err)
	}

	m.done = true
	if c, ok := m.raw.(io.Closer); ok {
		_ = c.Close()
	}
	if verr := m.verify(); verr != nil {
		m.finalErr = verr
		if n > 0 {
			return n, nil
		}
		return 0, verr
	}
	m.pendingOK = true
	return n, io.EOF
}

func (m *memberReader) verify() error {
	expected := m.expectedCRC
	if m.hasDescriptor {
		desc, err := readDataDescriptor(m.src)
		if err != nil {
			return xerr.Wrap(xerr.UnexpectedEOF, fmt.Sprintf("member %q: data descriptor", m.header.Name), err)
		}
		expected = desc.crc32
	}
	if m.crc.Sum32() != expected {
		return xerr.New(xerr.CRCMismatch, fmt.Sprintf("member %q: expected %#08x, got %#08x", m.header.Name, expected, m.crc.Sum32()))
	}
	return nil
}

// discard fully drains an unread member so the underlying stream position
// lands exactly at the start of the next local file header.
func (m *memberReader) discard() error {
	if m.done {
		return m.finalErr
	}
	if _, err := io.Copy(io.Discard, m); err != nil {
		return err
	}
	return m.finalErr
}

type dataDescriptor struct {
	crc32            uint32
	compressedSize   uint64
	uncompressedSize uint64
}

// readDataDescriptor reads the 12- or 16-byte data descriptor that follows
// compressed data when the local header's "size unknown" bit is set. The
// leading signature is optional per APPNOTE but written by most tools, so it
// is peeked and consumed when present.
func readDataDescriptor(r io.Reader) (dataDescriptor, error) {
	var d dataDescriptor
	var first [4]byte
	if _, err := io.ReadFull(r, first[:]); err != nil {
		return d, err
	}
	var crcBuf [4]byte
	if binary.LittleEndian.Uint32(first[:]) == dataDescriptorSignature {
		if _, err := io.ReadFull(r, crcBuf[:]); err != nil {
			return d, err
		}
	} else {
		crcBuf = first
	}
	d.crc32 = binary.LittleEndian.Uint32(crcBuf[:])
	var sizes [8]byte
	if _, err := io.ReadFull(r, sizes[:]); err != nil {
		return d, err
	}
	d.compressedSize = uint64(binary.LittleEndian.Uint32(sizes[0:4]))
	d.uncompressedSize = uint64(binary.LittleEndian.Uint32(sizes[4:8]))
	return d, nil
}
