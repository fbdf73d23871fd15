// Package sniff classifies a byte buffer into a document format from its
// binary signature. Filename extensions are never consulted: office formats
// are recognised by their zip structure and internal member names, PDF by its
// header, and a table of known binary magics separates "unsupported" from
// "plain text" (text formats such as csv, json, txt carry no magic at all, so
// the absence of any signature is itself the plain-text signal).
package sniff

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
)

// Format identifies a document container format.
type Format string

const (
	FormatText        Format = "text"
	FormatPDF         Format = "pdf"
	FormatDocx        Format = "docx"
	FormatPptx        Format = "pptx"
	FormatXlsx        Format = "xlsx"
	FormatODT         Format = "odt"
	FormatODS         Format = "ods"
	FormatODP         Format = "odp"
	FormatZip         Format = "zip"
	FormatHTML        Format = "html"
	FormatXML         Format = "xml"
	FormatUnsupported Format = "unsupported"
)

// Archive reports whether the format is a zip container whose text lives in
// XML members (office formats and plain zip archives share one extraction
// strategy).
func (f Format) Archive() bool {
	switch f {
	case FormatDocx, FormatPptx, FormatXlsx, FormatODT, FormatODS, FormatODP, FormatZip:
		return true
	}
	return false
}

// Formats returns every format Detect can produce.
func Formats() []Format {
	return []Format{
		FormatText, FormatPDF, FormatDocx, FormatPptx, FormatXlsx,
		FormatODT, FormatODS, FormatODP, FormatZip, FormatHTML, FormatXML,
		FormatUnsupported,
	}
}

// Detect classifies data. It is total: every buffer, including the empty one,
// maps to exactly one Format. Predicates only look at bounded prefixes (plus
// the zip directory for PK buffers), so Detect never panics on truncated
// input. A buffer with a PK magic whose zip structure cannot be parsed still
// classifies as FormatZip; structural validation is the extractor's job.
func Detect(data []byte) Format {
	if hasPrefix(data, pkMagic) || hasPrefix(data, pkEmpty) || hasPrefix(data, pkSpanned) {
		return detectZip(data)
	}
	if hasPrefix(data, []byte("%PDF")) {
		return FormatPDF
	}
	if f, ok := detectMarkup(data); ok {
		return f
	}
	if isKnownBinary(data) {
		return FormatUnsupported
	}
	return FormatText
}

var (
	pkMagic   = []byte{0x50, 0x4B, 0x03, 0x04}
	pkEmpty   = []byte{0x50, 0x4B, 0x05, 0x06}
	pkSpanned = []byte{0x50, 0x4B, 0x07, 0x08}
)

func hasPrefix(data, magic []byte) bool {
	return len(data) >= len(magic) && bytes.Equal(data[:len(magic)], magic)
}

// detectZip distinguishes office formats from a generic zip by inspecting
// member names. Office signatures must win over the generic zip signature:
// every docx/xlsx/pptx/odt is also a valid zip archive.
func detectZip(data []byte) Format {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return FormatZip
	}

	// OpenDocument archives declare themselves in a "mimetype" member.
	for _, f := range zr.File {
		if f.Name != "mimetype" {
			continue
		}
		if odf := odfFormat(readMemberPrefix(f, 128)); odf != "" {
			return odf
		}
	}

	// Office Open XML archives keep their parts under a telltale prefix.
	for _, f := range zr.File {
		switch {
		case strings.HasPrefix(f.Name, "word/"):
			return FormatDocx
		case strings.HasPrefix(f.Name, "ppt/"):
			return FormatPptx
		case strings.HasPrefix(f.Name, "xl/"):
			return FormatXlsx
		}
	}

	return FormatZip
}

func odfFormat(mimeType string) Format {
	switch {
	case strings.Contains(mimeType, "opendocument.text"):
		return FormatODT
	case strings.Contains(mimeType, "opendocument.spreadsheet"):
		return FormatODS
	case strings.Contains(mimeType, "opendocument.presentation"):
		return FormatODP
	}
	return ""
}

func readMemberPrefix(f *zip.File, n int) string {
	rc, err := f.Open()
	if err != nil {
		return ""
	}
	defer rc.Close()
	buf := make([]byte, n)
	read, err := io.ReadFull(rc, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return ""
	}
	return string(buf[:read])
}

// detectMarkup recognises HTML and XML text signatures after skipping a UTF-8
// BOM and leading whitespace.
func detectMarkup(data []byte) (Format, bool) {
	head := data
	head = bytes.TrimPrefix(head, []byte{0xEF, 0xBB, 0xBF})
	head = bytes.TrimLeft(head, " \t\r\n")
	if len(head) > 512 {
		head = head[:512]
	}
	upper := strings.ToUpper(string(head))

	switch {
	case strings.HasPrefix(upper, "<!DOCTYPE HTML"), strings.HasPrefix(upper, "<HTML"):
		return FormatHTML, true
	case strings.HasPrefix(upper, "<?XML"):
		// XHTML declares itself XML first.
		if strings.Contains(upper, "<HTML") {
			return FormatHTML, true
		}
		return FormatXML, true
	}
	return "", false
}

// binaryMagic is one entry of the recognised-but-unsupported signature table.
type binaryMagic struct {
	offset int
	magic  []byte
}

var binaryMagics = []binaryMagic{
	{0, []byte{0xFF, 0xD8, 0xFF}},                               // jpeg
	{0, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}}, // png
	{0, []byte("GIF8")},                                         // gif
	{8, []byte("WEBP")},                                         // webp (RIFF....WEBP)
	{8, []byte("WAVE")},                                         // wav
	{8, []byte("AVI ")},                                         // avi
	{0, []byte{0x49, 0x49, 0x2A, 0x00}},                         // tiff little-endian
	{0, []byte{0x4D, 0x4D, 0x00, 0x2A}},                         // tiff big-endian
	{0, []byte("BM")},                                           // bmp
	{0, []byte{0x00, 0x00, 0x01, 0x00}},                         // ico
	{0, []byte{0x1F, 0x8B}},                                     // gzip
	{0, []byte{0xFD, 0x37, 0x7A, 0x58, 0x5A, 0x00}},             // xz
	{0, []byte{0x28, 0xB5, 0x2F, 0xFD}},                         // zstd
	{0, []byte("BZh")},                                          // bzip2
	{0, []byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C}},             // 7z
	{0, []byte("Rar!")},                                         // rar
	{0, []byte{0x7F, 0x45, 0x4C, 0x46}},                         // elf
	{0, []byte("MZ")},                                           // pe/exe
	{0, []byte{0xFE, 0xED, 0xFA, 0xCE}},                         // mach-o 32
	{0, []byte{0xFE, 0xED, 0xFA, 0xCF}},                         // mach-o 64
	{0, []byte{0xCF, 0xFA, 0xED, 0xFE}},                         // mach-o 64 le
	{0, []byte{0xCA, 0xFE, 0xBA, 0xBE}},                         // java class / fat mach-o
	{0, []byte{0x00, 0x61, 0x73, 0x6D}},                         // wasm
	{0, []byte("SQLite format 3\x00")},                          // sqlite
	{0, []byte("OggS")},                                         // ogg
	{0, []byte("fLaC")},                                         // flac
	{0, []byte("ID3")},                                          // mp3 with tag
	{0, []byte{0xFF, 0xFB}},                                     // mp3 frame
	{0, []byte{0x25, 0x21, 0x50, 0x53}},                         // postscript %!PS
	{4, []byte("ftyp")},                                         // mp4/mov family
}

func isKnownBinary(data []byte) bool {
	for _, m := range binaryMagics {
		end := m.offset + len(m.magic)
		if len(data) >= end && bytes.Equal(data[m.offset:end], m.magic) {
			return true
		}
	}
	return false
}
