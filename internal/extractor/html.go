package extractor

import "regexp"

var (
	dataAttribute  = regexp.MustCompile(`\sdata-[\w-]+="[^"]*"`)
	interTagSpace  = regexp.MustCompile(`>\s+<`)
	spanOpenTag    = regexp.MustCompile(`(<span[^>]*>)\s*<`)
	newlineWrapped = regexp.MustCompile(`\s*\n\s*`)
)

// CleanHTML prepares product description markup for the bulk importer:
// data-* attributes are removed, whitespace between tags collapses, a single
// space is kept after an opening span that directly wraps another tag, and
// newlines together with their surrounding whitespace are dropped.
func CleanHTML(html string) string {
	s := dataAttribute.ReplaceAllString(html, "")
	s = interTagSpace.ReplaceAllString(s, "><")
	s = spanOpenTag.ReplaceAllString(s, "${1} <")
	return newlineWrapped.ReplaceAllString(s, "")
}
