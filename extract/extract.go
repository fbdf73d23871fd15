// Package extract turns a classified byte buffer into an ordered sequence of
// text blocks.
//
// Strategies per format:
//   - text/xml: lossy UTF-8 decode, one block per line
//   - pdf: pdfcpu content-stream extraction, one block for the document
//   - zip family (docx, pptx, xlsx, odt, ods, odp, zip): every ".xml" member
//     decoded as UTF-8, one block per member in archive order
//   - html: sanitized and converted to Markdown, one block per line
//
// The package is a pure transform: no filesystem access, no retained state,
// safe for concurrent use over distinct buffers. Callers own the buffer; it
// is never mutated or kept past the call.
package extract

import (
	"errors"
	"fmt"

	"github.com/J-Schoepplenberg/mailsift/sniff"
)

// Block is one unit of extracted text. Member carries the archive member name
// when the block came out of a zip container, and is empty otherwise. Blocks
// never overlap in source origin; their order follows the source (line order
// or ascending archive member index).
type Block struct {
	Member string `json:"member,omitempty"`
	Text   string `json:"text"`
}

// Extraction failure kinds. Every error returned by Extract wraps exactly one
// of these, so callers can branch with errors.Is.
var (
	// ErrUnsupportedFormat: the classifier recognised a signature outside the
	// supported set. No extraction is attempted.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrArchiveOpen: the buffer carried a zip signature but its structure
	// does not parse (truncated or corrupt archive).
	ErrArchiveOpen = errors.New("open archive")
	// ErrMemberRead: an archive member could not be read or decoded. The
	// whole extraction aborts; no partial block list is returned.
	ErrMemberRead = errors.New("read archive member")
	// ErrPDFDecode: PDF text extraction failed (encryption, malformed
	// structure, decoder-internal error).
	ErrPDFDecode = errors.New("decode pdf")
)

// Extract dispatches on format and returns the extracted blocks. The zip
// strategy re-validates the archive structure: a buffer can carry a zip-like
// magic number yet be truncated, which surfaces here as ErrArchiveOpen rather
// than at classification time.
func Extract(format sniff.Format, data []byte) ([]Block, error) {
	switch {
	case format.Archive():
		return extractArchive(data)
	case format == sniff.FormatText || format == sniff.FormatXML:
		return extractText(data), nil
	case format == sniff.FormatPDF:
		return extractPDF(data)
	case format == sniff.FormatHTML:
		return extractHTML(data), nil
	case format == sniff.FormatUnsupported:
		return nil, ErrUnsupportedFormat
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
