package xlsxstream

import "github.com/bsirb/xlsxstream/internal/xerr"

// Kind identifies which row of the error taxonomy an Error belongs to; the
// constants below list every Kind.
type Kind = xerr.Kind

// Error is the concrete error type returned throughout the pipeline.
// errors.Is and errors.As work through it via Unwrap in the usual way.
type Error = xerr.Error

// Observer receives non-fatal warnings out-of-band from row iteration.
type Observer = xerr.Observer

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc = xerr.ObserverFunc

// Source errors.
const (
	NotFound          = xerr.NotFound
	PermissionDenied  = xerr.PermissionDenied
	UnsupportedSource = xerr.UnsupportedSource
	Auth              = xerr.Auth
	Network           = xerr.Network
	HTTPStatus        = xerr.HTTPStatus
	Timeout           = xerr.Timeout
	TooManyRedirects  = xerr.TooManyRedirects
)

// Archive errors.
const (
	UnexpectedEOF     = xerr.UnexpectedEOF
	CRCMismatch       = xerr.CRCMismatch
	UnsupportedMethod = xerr.UnsupportedMethod
	EncryptedEntry    = xerr.EncryptedEntry
	SplitArchive      = xerr.SplitArchive
)

// Package errors.
const (
	MissingWorkbookPart      = xerr.MissingWorkbookPart
	MissingRelationshipsPart = xerr.MissingRelationshipsPart
	SheetNotFound            = xerr.SheetNotFound
)

// XML / data errors.
const (
	MalformedXML      = xerr.MalformedXML
	SharedStringIndex = xerr.SharedStringIndex
	BadCellAddress    = xerr.BadCellAddress
)

// Sink errors.
const SinkIO = xerr.SinkIO

// Warnings — delivered through an Observer, never returned as a terminating
// error.
const (
	DuplicateSheetName = xerr.DuplicateSheetName
	EmptyWorkbook      = xerr.EmptyWorkbook
)

// KindOf reports the Kind of err, if err is (or wraps) an *Error.
func KindOf(err error) (Kind, bool) {
	return xerr.Of(err)
}
