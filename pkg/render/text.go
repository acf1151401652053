package render

import (
	"bytes"
	"encoding/xml"
	"unicode"
)

const (
	nodeFontSize  = 14.0
	labelFontSize = 12.0
	captionSize   = 10.0

	narrowCharWidth = 0.6 // em
	wideCharWidth   = 1.2 // em, CJK counts double
)

func isWide(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul) ||
		(r >= 0xFF00 && r <= 0xFFEF)
}

// TextWidth estimates the rendered width of s at fontSize.
func TextWidth(s string, fontSize float64) float64 {
	w := 0.0
	for _, r := range s {
		if isWide(r) {
			w += wideCharWidth
		} else {
			w += narrowCharWidth
		}
	}
	return w * fontSize
}

// truncate shortens s with ".." so that it fits in avail at fontSize.
func truncate(s string, avail, fontSize float64) string {
	if TextWidth(s, fontSize) <= avail {
		return s
	}
	limit := avail - TextWidth("..", fontSize)
	w := 0.0
	runes := []rune(s)
	for i, r := range runes {
		cw := narrowCharWidth * fontSize
		if isWide(r) {
			cw = wideCharWidth * fontSize
		}
		if w+cw > limit {
			return string(runes[:i]) + ".."
		}
		w += cw
	}
	return s
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
