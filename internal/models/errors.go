package models

import (
	"errors"
	"fmt"
)

// ErrNoTextLayer indicates a document with no extractable text layer
// (image-only scan, or undecodable font encodings).
var ErrNoTextLayer = errors.New("no extractable text layer")

// UnreadableDocumentError is fatal for a single document: the file could
// not be opened or yielded no readable text. No partial output is produced
// and the document is not retried.
type UnreadableDocumentError struct {
	Path string
	Err  error
}

func (e *UnreadableDocumentError) Error() string {
	return fmt.Sprintf("unreadable document %s: %v", e.Path, e.Err)
}

func (e *UnreadableDocumentError) Unwrap() error {
	return e.Err
}

// MalformedRowError is row-local: a reconstructed row had no parseable
// amount token. The row is skipped and counted; processing continues.
type MalformedRowError struct {
	Line string
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("malformed row: %q", e.Line)
}

// DateError is row-local: a raw date string could not be resolved into any
// month/day pair, even after repair. The row is skipped and counted.
type DateError struct {
	Raw string
}

func (e *DateError) Error() string {
	return fmt.Sprintf("unparseable date: %q", e.Raw)
}
