// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ast

import (
	"strconv"
	"strings"
)

// maxIndex is the greatest segment value converted to an array index.
const maxIndex = 1<<31 - 1

// Segment is a segment of a Reference: a property name or, if IsIndex is
// true, a non-negative array index.
type Segment struct {
	Name    string
	Index   int
	IsIndex bool
}

// String returns the segment as it is written in a template.
func (s Segment) String() string {
	if s.IsIndex {
		return strconv.Itoa(s.Index)
	}
	return s.Name
}

// Reference is a variable path.
type Reference []Segment

// ParseReference splits a dotted variable name into a reference. Purely
// numeric segments in the int32 range become array indexes.
func ParseReference(name string) Reference {
	if name == "" {
		return nil
	}
	parts := strings.Split(name, ".")
	ref := make(Reference, len(parts))
	for i, part := range parts {
		ref[i] = Segment{Name: part}
		if isDigits(part) {
			if n, err := strconv.Atoi(part); err == nil && n <= maxIndex {
				ref[i] = Segment{Index: n, IsIndex: true}
			}
		}
	}
	return ref
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// String returns the dotted form of the reference.
func (ref Reference) String() string {
	switch len(ref) {
	case 0:
		return ""
	case 1:
		return ref[0].String()
	}
	var b strings.Builder
	for i, s := range ref {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s.String())
	}
	return b.String()
}

// Head returns the first segment name, or the empty string if the
// reference is empty or starts with an index.
func (ref Reference) Head() string {
	if len(ref) == 0 || ref[0].IsIndex {
		return ""
	}
	return ref[0].Name
}
