// Package scan finds email-address tokens in extracted text blocks.
//
// The match is lexical only: local part in [A-Za-z0-9._%+-]+, domain in
// [A-Za-z0-9.-]+, TLD of at least two letters. Nothing here validates that an
// address is deliverable.
package scan

import (
	"regexp"
	"sort"

	"github.com/J-Schoepplenberg/mailsift/extract"
)

var emailRe = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

// Emails scans every block and returns the deduplicated addresses, sorted for
// deterministic output. Zero matches is a normal outcome and yields an empty
// slice, never an error.
func Emails(blocks []extract.Block) []string {
	seen := make(map[string]struct{})
	for _, b := range blocks {
		for _, m := range emailRe.FindAllString(b.Text, -1) {
			seen[m] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for addr := range seen {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out
}
