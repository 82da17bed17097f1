package services

import "errors"

// Sentinel errors surfaced by the service layer. Handlers translate these
// into RFC 7807 responses.
var (
	// ErrInvalidUpload marks an upload rejected before parsing.
	ErrInvalidUpload = errors.New("invalid upload")

	// ErrWorkbookParse marks a workbook that could not be turned into a dataset.
	ErrWorkbookParse = errors.New("workbook parse failed")
)
