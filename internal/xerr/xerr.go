// Package xerr defines the error-kind taxonomy shared by every layer of the
// streaming pipeline (byte sources, the unzipper, the package index, the
// worksheet streamer, and the reader facade). Kinds are plain strings, not a
// Go type hierarchy, matching the taxonomy in the error handling design: a
// caller distinguishes failures by Kind, not by type-asserting a tree of
// concrete error types.
//
// The root xlsxstream package re-exports Kind and Error under its own names
// so library consumers never need to import this package directly; it exists
// separately so internal packages (ziparchive, worksheet, bytesource, ...)
// can construct taxonomy errors without importing the root package and
// creating an import cycle.
package xerr

import "fmt"

// Kind identifies which row of the error taxonomy an Error belongs to.
type Kind string

const (
	// Source errors.
	NotFound          Kind = "NOT_FOUND"
	PermissionDenied  Kind = "PERMISSION_DENIED"
	UnsupportedSource Kind = "UNSUPPORTED_SOURCE"
	Auth              Kind = "AUTH"
	Network           Kind = "NETWORK"
	HTTPStatus        Kind = "HTTP_STATUS"
	Timeout           Kind = "TIMEOUT"
	TooManyRedirects  Kind = "TOO_MANY_REDIRECTS"

	// Archive errors.
	UnexpectedEOF     Kind = "UNEXPECTED_EOF"
	CRCMismatch       Kind = "CRC_MISMATCH"
	UnsupportedMethod Kind = "UNSUPPORTED_METHOD"
	EncryptedEntry    Kind = "ENCRYPTED_ENTRY"
	SplitArchive      Kind = "SPLIT_ARCHIVE"

	// Package errors.
	MissingWorkbookPart      Kind = "MISSING_WORKBOOK_PART"
	MissingRelationshipsPart Kind = "MISSING_RELATIONSHIPS_PART"
	SheetNotFound            Kind = "SHEET_NOT_FOUND"

	// XML / data errors.
	MalformedXML      Kind = "MALFORMED_XML"
	SharedStringIndex Kind = "SHARED_STRING_INDEX"
	BadCellAddress    Kind = "BAD_CELL_ADDRESS"

	// Sink errors.
	SinkIO Kind = "SINK_IO"

	// Warnings — non-fatal, delivered through an Observer, never returned
	// as a terminating error.
	DuplicateSheetName Kind = "DUPLICATE_SHEET_NAME"
	EmptyWorkbook      Kind = "EMPTY_WORKBOOK"
)

// Error is the concrete error type returned throughout the pipeline. Kind is
// the stable, machine-checkable part; Detail is a human-readable free-text
// description; Err, when present, is the underlying cause and is reachable
// via errors.Unwrap / errors.Is / errors.As.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs a taxonomy error with no underlying cause.
func New(kind Kind, detail string) error {
	return &Error{Kind: kind, Detail: detail}
}

// Wrap constructs a taxonomy error that wraps an underlying cause.
func Wrap(kind Kind, detail string, err error) error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}

// Observer receives non-fatal warnings (DuplicateSheetName, EmptyWorkbook)
// out-of-band from the row iterator, which never terminates because of
// them. A nil Observer is valid everywhere one is accepted; warnings are
// simply dropped.
type Observer interface {
	Warn(kind Kind, detail string)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(kind Kind, detail string)

func (f ObserverFunc) Warn(kind Kind, detail string) { f(kind, detail) }

// Notify calls obs.Warn if obs is non-nil, so callers never need a nil check
// at every warning site.
func Notify(obs Observer, kind Kind, detail string) {
	if obs != nil {
		obs.Warn(kind, detail)
	}
}

// Of reports the Kind of err, if err is (or wraps) an *Error.
func Of(err error) (Kind, bool) {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return "", false
		}
		err = u.Unwrap()
	}
	return "", false
}
