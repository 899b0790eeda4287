package extractor

import (
	"regexp"
	"strings"
)

// Pass is one named step of the object-literal repair pipeline.
type Pass struct {
	Name  string
	Apply func(string) string
}

// Pass names, in pipeline order.
const (
	PassDropDescription    = "drop-description"
	PassQuoteKeys          = "quote-keys"
	PassProtectInnerQuotes = "protect-inner-quotes"
	PassSingleToDouble     = "single-to-double-quotes"
	PassBackticksToDouble  = "backticks-to-double-quotes"
	PassStripTrailingComma = "strip-trailing-commas"
	PassRestoreInnerQuotes = "restore-inner-quotes"
)

// Sentinels standing in for quote characters inside double-quoted strings
// while quote styles are normalized. Private-use code points never appear in
// storefront markup.
const (
	sentinelApostrophe = "\uE000"
	sentinelBacktick   = "\uE001"
)

// Repairer turns a JavaScript object literal into JSON by running its passes
// in order.
type Repairer struct {
	passes []Pass
}

// NewRepairer builds the standard pipeline. dropDescription enables removal
// of the verbose description field, which routinely carries unescaped quotes.
// It runs first because the remaining passes track string boundaries and a
// stray quote in the description would throw them off.
func NewRepairer(dropDescription bool) *Repairer {
	var passes []Pass
	if dropDescription {
		passes = append(passes, Pass{Name: PassDropDescription, Apply: DropDescription})
	}
	passes = append(passes,
		Pass{Name: PassQuoteKeys, Apply: QuoteKeys},
		Pass{Name: PassProtectInnerQuotes, Apply: ProtectInnerQuotes},
		Pass{Name: PassSingleToDouble, Apply: SingleToDoubleQuotes},
		Pass{Name: PassBackticksToDouble, Apply: BackticksToDoubleQuotes},
		Pass{Name: PassStripTrailingComma, Apply: StripTrailingCommas},
		Pass{Name: PassRestoreInnerQuotes, Apply: RestoreInnerQuotes},
	)
	return &Repairer{passes: passes}
}

// Repair applies every pass to literal. The result is not guaranteed to be
// valid JSON; callers decode it and treat failure as malformed data.
func (r *Repairer) Repair(literal string) string {
	s := literal
	for _, p := range r.passes {
		s = p.Apply(s)
	}
	return s
}

// Passes returns the pass names in the order they run.
func (r *Repairer) Passes() []string {
	names := make([]string, len(r.passes))
	for i, p := range r.passes {
		names[i] = p.Name
	}
	return names
}

var bareKey = regexp.MustCompile(`([{,]\s*)([A-Za-z_$][\w$]*)\s*:`)

// QuoteKeys wraps bare identifier keys in double quotes. String contents are
// left alone.
func QuoteKeys(s string) string {
	return mapSegments(s, func(seg segment) string {
		if seg.kind != segCode {
			return seg.text
		}
		return bareKey.ReplaceAllString(seg.text, `$1"$2":`)
	})
}

var descriptionField = regexp.MustCompile(
	`(?s)(?:"description"|'description'|\bdescription)\s*:\s*(?:".*?"|'.*?'|` + "`.*?`" + `)\s*,\s*"?sku"?\s*:`)

// DropDescription removes the description field, quoted key or bare, when it
// is followed by the sku field. It works on raw text because the description
// is the field most likely to contain unbalanced quotes.
func DropDescription(s string) string {
	return descriptionField.ReplaceAllString(s, `"sku":`)
}

// ProtectInnerQuotes hides apostrophes and back-ticks inside double-quoted
// strings behind sentinels so quote normalization cannot treat them as
// delimiters.
func ProtectInnerQuotes(s string) string {
	return mapSegments(s, func(seg segment) string {
		if seg.kind != segDouble {
			return seg.text
		}
		t := strings.ReplaceAll(seg.text, "'", sentinelApostrophe)
		return strings.ReplaceAll(t, "`", sentinelBacktick)
	})
}

// SingleToDoubleQuotes rewrites single-quoted literals as double-quoted ones.
func SingleToDoubleQuotes(s string) string {
	return mapSegments(s, func(seg segment) string {
		if seg.kind != segSingle {
			return seg.text
		}
		return requote(seg.text, '\'')
	})
}

// BackticksToDoubleQuotes rewrites template literals as double-quoted strings.
func BackticksToDoubleQuotes(s string) string {
	return mapSegments(s, func(seg segment) string {
		if seg.kind != segBacktick {
			return seg.text
		}
		return requote(seg.text, '`')
	})
}

var trailingComma = regexp.MustCompile(`,(\s*[\]}])`)

// StripTrailingCommas drops commas directly before a closing bracket or brace.
func StripTrailingCommas(s string) string {
	return mapSegments(s, func(seg segment) string {
		if seg.kind != segCode {
			return seg.text
		}
		return trailingComma.ReplaceAllString(seg.text, `$1`)
	})
}

// RestoreInnerQuotes undoes ProtectInnerQuotes.
func RestoreInnerQuotes(s string) string {
	s = strings.ReplaceAll(s, sentinelApostrophe, "'")
	return strings.ReplaceAll(s, sentinelBacktick, "`")
}

// requote converts a literal delimited by quote (delimiters included) into a
// JSON string.
func requote(lit string, quote byte) string {
	body := lit[1:]
	if strings.HasSuffix(body, string(quote)) {
		body = body[:len(body)-1]
	}

	var b strings.Builder
	b.Grow(len(lit) + 8)
	b.WriteByte('"')
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case c == '\\' && i+1 < len(body):
			next := body[i+1]
			if next == quote {
				b.WriteByte(next)
			} else {
				b.WriteByte(c)
				b.WriteByte(next)
			}
			i++
		case c == '"':
			b.WriteString(`\"`)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\r':
			b.WriteString(`\r`)
		case c == '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

type segmentKind int

const (
	segCode segmentKind = iota
	segDouble
	segSingle
	segBacktick
)

// segment is a run of code or one string literal, delimiters included.
type segment struct {
	kind segmentKind
	text string
}

// lex splits s into code and string-literal segments. An unterminated literal
// runs to the end of the input. All delimiters are ASCII, so scanning bytes is
// safe for UTF-8 input.
func lex(s string) []segment {
	var segs []segment
	start := 0
	for i := 0; i < len(s); i++ {
		var kind segmentKind
		switch s[i] {
		case '"':
			kind = segDouble
		case '\'':
			kind = segSingle
		case '`':
			kind = segBacktick
		default:
			continue
		}
		if i > start {
			segs = append(segs, segment{kind: segCode, text: s[start:i]})
		}
		end := closingQuote(s, i)
		segs = append(segs, segment{kind: kind, text: s[i:end]})
		start = end
		i = end - 1
	}
	if start < len(s) {
		segs = append(segs, segment{kind: segCode, text: s[start:]})
	}
	return segs
}

// closingQuote returns the index just past the literal opened at s[open].
func closingQuote(s string, open int) int {
	q := s[open]
	for j := open + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case q:
			return j + 1
		}
	}
	return len(s)
}

func mapSegments(s string, fn func(segment) string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, seg := range lex(s) {
		b.WriteString(fn(seg))
	}
	return b.String()
}
