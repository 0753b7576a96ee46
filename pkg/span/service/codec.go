package service

import (
	"encoding/binary"
	"errors"

	"github.com/weftlabs/weft/pkg/span/model"
)

var (
	// ErrMalformedSpanId indicates a span id without any levels. ParentOf
	// returns it for root-level ids, which have no parent to yield.
	ErrMalformedSpanId = errors.New("span id has no levels")
	// ErrInvalidSpanId indicates inconsistent sibling bookkeeping, i.e. a
	// sibling index exceeding the reported sibling count for that level.
	ErrInvalidSpanId = errors.New("span id sibling index exceeds sibling count")
	// ErrTruncatedSpanId indicates bytes that end mid-position.
	ErrTruncatedSpanId = errors.New("span id bytes are truncated")
)

// SpanIdCodec translates between the wire form of a span id and its decoded
// position path. The wire form is the sequence of (index, count) pairs, each
// value written as an unsigned varint.
type SpanIdCodec struct{}

func NewSpanIdCodec() *SpanIdCodec {
	return &SpanIdCodec{}
}

func (c *SpanIdCodec) Encode(path model.SpanID) []byte {
	buf := make([]byte, 0, len(path)*2*binary.MaxVarintLen32)
	for _, pos := range path {
		buf = binary.AppendUvarint(buf, uint64(pos.Index))
		buf = binary.AppendUvarint(buf, uint64(pos.Count))
	}
	return buf
}

func (c *SpanIdCodec) Decode(idBytes []byte) (model.SpanID, error) {
	if len(idBytes) == 0 {
		return nil, ErrMalformedSpanId
	}
	var path model.SpanID
	for len(idBytes) > 0 {
		index, n := binary.Uvarint(idBytes)
		if n <= 0 {
			return nil, ErrTruncatedSpanId
		}
		idBytes = idBytes[n:]
		count, n := binary.Uvarint(idBytes)
		if n <= 0 {
			return nil, ErrTruncatedSpanId
		}
		idBytes = idBytes[n:]
		pos := model.Position{Index: uint32(index), Count: uint32(count)}
		if pos.Count != 0 && pos.Index > pos.Count {
			return nil, ErrInvalidSpanId
		}
		path = append(path, pos)
	}
	return path, nil
}

// ParentOf returns the id of the enclosing span, obtained by dropping the last
// position. Root-level ids have no parent and yield ErrMalformedSpanId.
func (c *SpanIdCodec) ParentOf(path model.SpanID) (model.SpanID, error) {
	if len(path) <= 1 {
		return nil, ErrMalformedSpanId
	}
	parent := make(model.SpanID, len(path)-1)
	copy(parent, path[:len(path)-1])
	return parent, nil
}

// IsAncestor reports whether a's path is a strict prefix of b's.
func (c *SpanIdCodec) IsAncestor(a model.SpanID, b model.SpanID) bool {
	if len(a) >= len(b) {
		return false
	}
	return a.Equal(b[:len(a)])
}

// Validate applies the same sibling bookkeeping check as Decode to an already
// decoded path.
func (c *SpanIdCodec) Validate(path model.SpanID) error {
	if len(path) == 0 {
		return ErrMalformedSpanId
	}
	for _, pos := range path {
		if pos.Count != 0 && pos.Index > pos.Count {
			return ErrInvalidSpanId
		}
	}
	return nil
}
