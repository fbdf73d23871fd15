package extract

import (
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/microcosm-cc/bluemonday"
)

var htmlPolicy = bluemonday.UGCPolicy()

var mdConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
	),
)

// extractHTML sanitizes the document and converts it to Markdown, then emits
// one block per line. Markdown keeps link targets (notably mailto:) in the
// text, so addresses present only in href attributes stay scannable; the
// sanitizer drops script and style payloads first. A conversion failure
// degrades to the lossy plain-text strategy over the sanitized markup, never
// the raw buffer, so stripped payloads stay stripped.
func extractHTML(data []byte) []Block {
	sanitized := htmlPolicy.Sanitize(string(data))
	md, err := mdConverter.ConvertString(sanitized)
	if err != nil || md == "" {
		return extractText([]byte(sanitized))
	}
	return lineBlocks(md)
}
