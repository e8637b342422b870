// Package annotate rewrites chat text that references an image into markup
// the chat page renders inline.
package annotate

import (
	"html"
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

// AltText is the fallback alt attribute of every rewritten image.
const AltText = "inline image"

var imageExtensions = []string{".jpg", ".jpeg", ".png"}

// dataImagePattern matches base64 data URIs with a short image subtype. The
// payload alphabet is alphanumerics plus URI punctuation, minus the
// characters that are unsafe in URIs: " % < > [ \ ] ^ ` { | }
var dataImagePattern = regexp.MustCompile(
	`^data:image/[A-Za-z0-9.+\-]{1,10};base64,[A-Za-z0-9!#$&'()*+,\-./:;=?@_~]+$`,
)

// Annotate trims raw and, when the result is an image reference, wraps it
// in an <img> element. Other text is returned trimmed and otherwise
// unchanged.
func Annotate(raw string) string {
	text := strings.TrimSpace(raw)
	if !IsImageReference(text) {
		return text
	}
	return `<img src="` + html.EscapeString(text) + `" alt="` + AltText + `" />`
}

// IsImageReference reports whether s is an absolute URI to a JPEG or PNG
// file or a base64 encoded image data URI. s is expected to be trimmed.
func IsImageReference(s string) bool {
	if s == "" {
		return false
	}
	if strings.HasPrefix(s, "data:image/") {
		return dataImagePattern.MatchString(s)
	}
	return isImageURL(s)
}

func isImageURL(s string) bool {
	if strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	}) >= 0 {
		return false
	}

	u, err := url.Parse(s)
	if err != nil || !u.IsAbs() || u.Path == "" {
		return false
	}

	p := strings.ToLower(u.Path)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(p, ext) {
			return true
		}
	}
	return false
}
