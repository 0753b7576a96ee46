package model

import (
	"fmt"
	"strings"
)

// Position is one level of a span id: the span's index among its siblings and
// the number of siblings expected at that level. A Count of zero means the
// sibling count was not reported by the instrumentation.
type Position struct {
	Index uint32 `json:"index"`
	Count uint32 `json:"count,omitempty"`
}

// SpanID encodes a span's identity and its position in the session tree as the
// ordered sequence of positions from the root level down to the span itself.
// The parent of a span is obtained by dropping the last position.
type SpanID []Position

func (s SpanID) Depth() int {
	return len(s)
}

func (s SpanID) Equal(other SpanID) bool {
	if len(s) != len(other) {
		return false
	}
	for i, pos := range s {
		if pos != other[i] {
			return false
		}
	}
	return true
}

func (s SpanID) String() string {
	parts := make([]string, len(s))
	for i, pos := range s {
		if pos.Count == 0 {
			parts[i] = fmt.Sprintf("%d", pos.Index)
		} else {
			parts[i] = fmt.Sprintf("%d:%d", pos.Index, pos.Count)
		}
	}
	return strings.Join(parts, ".")
}
