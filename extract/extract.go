// Package extract turns raw document bytes into plain text.
//
// Extraction is pure: it reads the bytes it is given and never touches the
// filesystem or the index.
package extract

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Kind classifies an extraction failure.
type Kind int

const (
	// KindFailed is a generic failure: size or time ceiling exceeded, or a parser error.
	KindFailed Kind = iota
	// KindUnsupported means no strategy exists for the format.
	KindUnsupported
	// KindUnreadable means the input is corrupt, encrypted, or not the declared format.
	KindUnreadable
)

func (k Kind) String() string {
	switch k {
	case KindUnsupported:
		return "unsupported"
	case KindUnreadable:
		return "unreadable"
	default:
		return "failed"
	}
}

// Error describes why a document could not be extracted.
type Error struct {
	Kind   Kind
	Format Format
	Reason string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("extract %s: %s", e.Format, e.Kind)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the failure kind of err. Errors that are not *Error are KindFailed.
func KindOf(err error) Kind {
	var extractErr *Error
	if errors.As(err, &extractErr) {
		return extractErr.Kind
	}
	return KindFailed
}

func unsupported(format Format) error {
	return &Error{Kind: KindUnsupported, Format: format, Reason: "no extractor for format"}
}

func unreadable(format Format, reason string, err error) error {
	return &Error{Kind: KindUnreadable, Format: format, Reason: reason, Err: err}
}

func failed(format Format, reason string, err error) error {
	return &Error{Kind: KindFailed, Format: format, Reason: reason, Err: err}
}

// Extract converts data in the declared format into plain text.
func Extract(data []byte, format Format) (string, error) {
	switch format {
	case FormatPDF:
		return extractPDF(data)
	case FormatDOCX:
		return extractDOCX(data)
	case FormatXLSX:
		return extractXLSX(data)
	case FormatDOC, FormatXLS:
		return extractCompound(data, format)
	case FormatRTF:
		return extractRTF(data)
	case FormatTXT:
		return extractText(data), nil
	default:
		return "", unsupported(format)
	}
}

// Extractor applies per-file size and time ceilings around Extract.
type Extractor struct {
	MaxBytes int64         // inputs larger than this fail; 0 disables the check
	Timeout  time.Duration // extraction running longer than this fails; 0 disables the check
}

// Extract runs the format extractor with the configured ceilings. A parser that
// overruns the timeout is abandoned; its goroutine finishes in the background.
func (x Extractor) Extract(ctx context.Context, data []byte, format Format) (string, error) {
	if !format.Supported() {
		return "", unsupported(format)
	}
	if x.MaxBytes > 0 && int64(len(data)) > x.MaxBytes {
		return "", failed(format, "file exceeds size limit", nil)
	}
	if err := ctx.Err(); err != nil {
		return "", interrupted(format, err)
	}
	if x.Timeout <= 0 {
		return Extract(data, format)
	}

	ctx, cancel := context.WithTimeout(ctx, x.Timeout)
	defer cancel()

	type outcome struct {
		text string
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		text, err := Extract(data, format)
		done <- outcome{text, err}
	}()

	select {
	case out := <-done:
		return out.text, out.err
	case <-ctx.Done():
		return "", interrupted(format, ctx.Err())
	}
}

func interrupted(format Format, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return failed(format, "extraction timed out", err)
	}
	return failed(format, "extraction cancelled", err)
}
