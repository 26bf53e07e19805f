package extract

import (
	"unicode/utf8"

	"google.golang.org/protobuf/encoding/protowire"
)

// DefaultMaxDepth is the deepest nesting level the walker explores.
// The top-level buffer is depth 0.
const DefaultMaxDepth = 10

// Walker walks protobuf wire data without a schema.
type Walker struct {
	MaxDepth int
}

// NewWalker returns a Walker with the default depth ceiling.
func NewWalker() *Walker {
	return &Walker{MaxDepth: DefaultMaxDepth}
}

// Walk collects candidate strings from buf using the default depth ceiling.
func Walk(buf []byte, depth int) []string {
	return NewWalker().Walk(buf, depth)
}

// Walk reads buf as a sequence of protobuf fields and returns every
// length-delimited payload that decodes as plausible text, followed by the
// strings found inside that payload, in discovery order.
//
// Parsing of a level stops at the first truncated field, bad varint or
// unsupported wire type; results gathered up to that point are returned.
func (w *Walker) Walk(buf []byte, depth int) []string {
	var out []string
	if depth > w.MaxDepth {
		return out
	}

	b := buf
	for len(b) > 0 {
		tag, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return out
		}
		b = b[n:]

		switch protowire.Type(tag & 0x7) {
		case protowire.BytesType:
			length, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return out
			}
			b = b[n:]
			if length > uint64(len(b)) {
				return out
			}
			payload := b[:length]
			b = b[length:]

			if utf8.Valid(payload) && passesControlScreen(payload) {
				out = append(out, string(payload))
			}
			out = append(out, w.Walk(payload, depth+1)...)

		case protowire.VarintType:
			_, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return out
			}
			b = b[n:]

		case protowire.Fixed64Type:
			_, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return out
			}
			b = b[n:]

		case protowire.Fixed32Type:
			_, n := protowire.ConsumeFixed32(b)
			if n < 0 {
				return out
			}
			b = b[n:]

		default:
			// groups and unassigned wire types
			return out
		}
	}
	return out
}

// passesControlScreen reports whether p holds more than two characters and
// none of the C0 control bytes other than tab, LF and CR.
// p must already be valid UTF-8.
func passesControlScreen(p []byte) bool {
	if utf8.RuneCount(p) <= 2 {
		return false
	}
	for _, c := range p {
		if isScreenedControl(c) {
			return false
		}
	}
	return true
}

func isScreenedControl(c byte) bool {
	switch {
	case c <= 0x08:
		return true
	case c == 0x0B || c == 0x0C:
		return true
	case c >= 0x0E && c <= 0x1F:
		return true
	}
	return false
}
