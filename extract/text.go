package extract

import "strings"

// extractText decodes a buffer as UTF-8, substituting the replacement
// character for invalid sequences, and emits one block per line. The decode
// is lossy and never fails. Line boundaries are LF; a trailing CR is trimmed
// so CRLF input yields the same lines as LF input. A trailing newline does
// not produce an empty final block.
func extractText(data []byte) []Block {
	if len(data) == 0 {
		return nil
	}
	text := strings.ToValidUTF8(string(data), "�")
	return lineBlocks(text)
}

func lineBlocks(text string) []Block {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	blocks := make([]Block, 0, len(lines))
	for _, line := range lines {
		blocks = append(blocks, Block{Text: strings.TrimSuffix(line, "\r")})
	}
	return blocks
}
