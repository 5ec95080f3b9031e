// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package builtin

import "strings"

// htmlEscape escapes s so it can be placed inside HTML text.
func htmlEscape(s string) string {
	return escape(s, func(c byte) string {
		switch c {
		case '&':
			return "&amp;"
		case '<':
			return "&lt;"
		case '>':
			return "&gt;"
		}
		return ""
	})
}

// attributeEscape escapes s so it can be placed inside a quoted HTML
// attribute value.
func attributeEscape(s string) string {
	return escape(s, func(c byte) string {
		switch c {
		case '&':
			return "&amp;"
		case '<':
			return "&lt;"
		case '>':
			return "&gt;"
		case '"':
			return "&quot;"
		}
		return ""
	})
}

// escape replaces each byte of s for which esc returns a non-empty string.
func escape(s string, esc func(c byte) string) string {
	var b strings.Builder
	last := 0
	for i := 0; i < len(s); i++ {
		e := esc(s[i])
		if e == "" {
			continue
		}
		if b.Len() == 0 {
			b.Grow(len(s) + 8)
		}
		b.WriteString(s[last:i])
		b.WriteString(e)
		last = i + 1
	}
	if last == 0 {
		return s
	}
	b.WriteString(s[last:])
	return b.String()
}

// queryEscape escapes s so it can be placed inside a URL query.
func queryEscape(s string) string {
	const hexchars = "0123456789ABCDEF"
	last := 0
	numHex := 0
	for i := 0; i < len(s); i++ {
		if !isUnreserved(s[i]) {
			last = i + 1
			numHex++
		}
	}
	if numHex == 0 {
		return s
	}
	j := 0
	b := make([]byte, len(s)+2*numHex)
	for i := 0; i < last; i++ {
		c := s[i]
		if isUnreserved(c) {
			b[j] = c
		} else {
			b[j] = '%'
			b[j+1] = hexchars[c>>4]
			b[j+2] = hexchars[c&0xF]
			j += 2
		}
		j++
	}
	copy(b[j:], s[last:])
	return string(b)
}

func isUnreserved(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' ||
		c == '-' || c == '.' || c == '_' || c == '~'
}
