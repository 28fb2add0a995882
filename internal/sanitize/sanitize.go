// Package sanitize strips active content from HTML email bodies before they
// are handed to the classifier or rendered downstream. Removal is total, not
// escaping: consumers treat the output as inert.
package sanitize

import "regexp"

// All patterns tolerate irregular whitespace and newlines inside tag
// boundaries and match case-insensitively. Tag internals and attribute
// values carry explicit repeat bounds (Go's regexp caps counted repeats at
// 1000); element content is matched non-greedily, which RE2 keeps linear.
var (
	// Script elements including their content, across multi-line or
	// irregular closing tags.
	scriptBlock = regexp.MustCompile(`(?is)<\s{0,16}script\b[^>]{0,1000}>[\s\S]*?<\s{0,16}/\s{0,16}script\s{0,16}>`)
	// An opening script tag with no closing tag swallows the rest of the
	// document rather than leaving live content behind.
	scriptOpen = regexp.MustCompile(`(?is)<\s{0,16}script\b[^>]{0,1000}>[\s\S]*$`)

	iframeBlock = regexp.MustCompile(`(?is)<\s{0,16}iframe\b[^>]{0,1000}>[\s\S]*?<\s{0,16}/\s{0,16}iframe\s{0,16}>`)
	iframeOpen  = regexp.MustCompile(`(?is)<\s{0,16}iframe\b[^>]{0,1000}/?\s{0,16}>`)

	// Inline event handlers (onclick, onerror, onload, ...) in any quote
	// style. Browsers accept "/" as an attribute separator, so the leading
	// class admits it alongside whitespace.
	eventAttr = regexp.MustCompile(`(?i)[\s/]on[a-z]{1,32}\s{0,16}=\s{0,16}(?:"[^"]{0,1000}"|'[^']{0,1000}'|[^\s>]{1,1000})`)

	// javascript:-scheme URIs, with optional internal whitespace in the scheme.
	jsURI = regexp.MustCompile(`(?i)j\s{0,4}a\s{0,4}v\s{0,4}a\s{0,4}s\s{0,4}c\s{0,4}r\s{0,4}i\s{0,4}p\s{0,4}t\s{0,16}:[^\s"'<>]{0,1000}`)
)

// HTML removes active content from the input. Input with no matches is
// returned unchanged.
func HTML(input string) string {
	out := scriptBlock.ReplaceAllString(input, "")
	out = scriptOpen.ReplaceAllString(out, "")
	out = iframeBlock.ReplaceAllString(out, "")
	out = iframeOpen.ReplaceAllString(out, "")
	out = eventAttr.ReplaceAllString(out, "")
	out = jsURI.ReplaceAllString(out, "")
	return out
}

// HTMLSanitizer adapts the package function to the core.Sanitizer port
type HTMLSanitizer struct{}

// NewHTMLSanitizer creates a new sanitizer
func NewHTMLSanitizer() *HTMLSanitizer {
	return &HTMLSanitizer{}
}

// HTML implements core.Sanitizer
func (s *HTMLSanitizer) HTML(input string) string {
	return HTML(input)
}
