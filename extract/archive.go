package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// extractArchive opens the buffer as a zip container and decodes every member
// whose name ends in ".xml" as UTF-8 text, one block per member in archive
// order. Office formats (docx, odt, xlsx, ...) embed their human-readable
// content in XML parts next to binary/media parts that carry no extractable
// text; members not matching the suffix are skipped silently. The filter is
// a literal, case-sensitive name suffix, not a content-type check.
func extractArchive(data []byte) ([]Block, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArchiveOpen, err)
	}

	var blocks []Block
	for _, f := range zr.File {
		if !strings.HasSuffix(f.Name, ".xml") {
			continue
		}
		text, err := readMember(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrMemberRead, f.Name, err)
		}
		blocks = append(blocks, Block{Member: f.Name, Text: text})
	}
	return blocks, nil
}

func readMember(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(raw) {
		return "", errors.New("not valid utf-8")
	}
	return string(raw), nil
}
