// Copyright (c) 2019 Open2b Software Snc. All rights reserved.
// https://www.open2b.com

// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package runtime

import (
	"fmt"
	"strconv"
)

// fatalError represents a fatal error. A fatal error indicates a corrupt
// tree and is not recovered by the engine.
type fatalError struct {
	msg any
}

func (err *fatalError) Error() string {
	return "fatal error: " + panicToString(err.msg)
}

// panicToString returns the message of a recovered panic.
func panicToString(msg any) string {
	switch v := msg.(type) {
	case nil:
		return "nil"
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'e', -1, 64)
	case string:
		return v
	case error:
		return v.Error()
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprintf("(%T) %v", msg, msg)
}
