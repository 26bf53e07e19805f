package extract

import (
	"math/rand"
	"reflect"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

// bytesField encodes one length-delimited field.
func bytesField(num protowire.Number, payload []byte) []byte {
	b := protowire.AppendTag(nil, num, protowire.BytesType)
	return protowire.AppendBytes(b, payload)
}

func stringField(num protowire.Number, s string) []byte {
	return bytesField(num, []byte(s))
}

func varintField(num protowire.Number, v uint64) []byte {
	b := protowire.AppendTag(nil, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestWalk_SingleString(t *testing.T) {
	buf := append([]byte{0x0A, 0x0D}, "hello world!!"...)
	got := Walk(buf, 0)
	want := []string{"hello world!!"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Walk = %q, want %q", got, want)
	}
}

func TestWalk_EmptyBuffer(t *testing.T) {
	if got := Walk(nil, 0); len(got) != 0 {
		t.Errorf("Walk(nil) = %q, want empty", got)
	}
	if got := Walk([]byte{}, 0); len(got) != 0 {
		t.Errorf("Walk([]) = %q, want empty", got)
	}
}

func TestWalk_NonBytesFieldsOnly(t *testing.T) {
	buf := varintField(1, 150)
	buf = protowire.AppendTag(buf, 2, protowire.Fixed64Type)
	buf = protowire.AppendFixed64(buf, 0x1122334455667788)
	buf = protowire.AppendTag(buf, 3, protowire.Fixed32Type)
	buf = protowire.AppendFixed32(buf, 0xdeadbeef)

	if got := Walk(buf, 0); len(got) != 0 {
		t.Errorf("Walk = %q, want empty", got)
	}
}

func TestWalk_SkipsFixedAndVarintFields(t *testing.T) {
	buf := varintField(1, 1<<40)
	buf = protowire.AppendTag(buf, 2, protowire.Fixed64Type)
	buf = protowire.AppendFixed64(buf, 42)
	buf = protowire.AppendTag(buf, 3, protowire.Fixed32Type)
	buf = protowire.AppendFixed32(buf, 7)
	buf = append(buf, stringField(4, "after the numbers")...)

	got := Walk(buf, 0)
	want := []string{"after the numbers"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Walk = %q, want %q", got, want)
	}
}

func TestWalk_NestedMessage(t *testing.T) {
	// The varint 300 encodes as ac 02; a lone 0xac makes the outer payload
	// invalid UTF-8.
	inner := concat(varintField(2, 300), stringField(1, "nested value!"))
	buf := bytesField(1, inner)

	got := Walk(buf, 0)
	want := []string{"nested value!"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Walk = %q, want %q", got, want)
	}
}

func TestWalk_DiscoveryOrder(t *testing.T) {
	first := concat(varintField(9, 300), stringField(1, "first child"), stringField(2, "second child"))
	buf := concat(
		stringField(1, "top one"),
		bytesField(2, first),
		stringField(3, "top two"),
	)

	got := Walk(buf, 0)
	want := []string{"top one", "first child", "second child", "top two"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Walk = %q, want %q", got, want)
	}
}

func TestWalk_CandidateBeforeNestedStrings(t *testing.T) {
	// "inner text" is 10 bytes, so the length prefix is a newline and the
	// outer payload is valid text as well. It is reported first.
	inner := stringField(1, "inner text")
	buf := bytesField(1, inner)

	got := Walk(buf, 0)
	if len(got) != 2 {
		t.Fatalf("Walk = %q, want 2 strings", got)
	}
	if got[0] != string(inner) {
		t.Errorf("got[0] = %q, want outer payload %q", got[0], inner)
	}
	if got[1] != "inner text" {
		t.Errorf("got[1] = %q, want %q", got[1], "inner text")
	}
}

func TestWalk_TruncatedLengthKeepsEarlierStrings(t *testing.T) {
	buf := stringField(1, "complete field")
	buf = protowire.AppendTag(buf, 2, protowire.BytesType)
	buf = protowire.AppendVarint(buf, 50)
	buf = append(buf, "short"...)

	got := Walk(buf, 0)
	want := []string{"complete field"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Walk = %q, want %q", got, want)
	}
}

func TestWalk_TruncatedVarint(t *testing.T) {
	buf := concat(stringField(1, "before the end"), []byte{0x08, 0xff, 0xff})
	got := Walk(buf, 0)
	want := []string{"before the end"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Walk = %q, want %q", got, want)
	}
}

func TestWalk_UnsupportedWireTypeStops(t *testing.T) {
	for _, typ := range []protowire.Type{protowire.StartGroupType, protowire.EndGroupType, 6, 7} {
		buf := stringField(1, "kept string")
		buf = protowire.AppendTag(buf, 2, typ)
		buf = append(buf, stringField(3, "never reached")...)

		got := Walk(buf, 0)
		want := []string{"kept string"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("wire type %d: Walk = %q, want %q", typ, got, want)
		}
	}
}

func TestWalk_ControlCharacterScreen(t *testing.T) {
	tests := []struct {
		payload string
		want    bool
	}{
		{"abc", true},
		{"ab", false},
		{"한글", false},
		{"한글a", true},
		{"tab\there", true},
		{"line\r\nbreak", true},
		{"nul\x00byte", false},
		{"bell\x07", false},
		{"vt\x0bhere", false},
		{"ff\x0chere", false},
		{"esc\x1bhere", false},
		{"us\x1fhere", false},
	}

	for _, tt := range tests {
		got := Walk(stringField(1, tt.payload), 0)
		found := len(got) > 0 && got[0] == tt.payload
		if found != tt.want {
			t.Errorf("payload %q: reported = %v, want %v (got %q)", tt.payload, found, tt.want, got)
		}
	}
}

func TestWalk_InvalidUTF8StillRecursed(t *testing.T) {
	inner := concat([]byte{0x0D, 0xff, 0xfe, 0xfd, 0xfc}, stringField(2, "found anyway"))
	got := Walk(bytesField(1, inner), 0)
	want := []string{"found anyway"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Walk = %q, want %q", got, want)
	}
}

// wrap nests payload inside levels length-delimited fields.
func wrap(payload []byte, levels int) []byte {
	for i := 0; i < levels; i++ {
		payload = bytesField(1, payload)
	}
	return payload
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestWalk_DepthCeiling(t *testing.T) {
	const text = "deep text here"

	// The text field itself is read by the walk at depth == levels.
	atCeiling := wrap(stringField(1, text), DefaultMaxDepth)
	if got := Walk(atCeiling, 0); !contains(got, text) {
		t.Errorf("text at depth %d not found: %q", DefaultMaxDepth, got)
	}

	beyond := wrap(stringField(1, text), DefaultMaxDepth+1)
	if got := Walk(beyond, 0); contains(got, text) {
		t.Errorf("text at depth %d should not be found: %q", DefaultMaxDepth+1, got)
	}

	if got := Walk(stringField(1, text), DefaultMaxDepth+1); len(got) != 0 {
		t.Errorf("Walk above ceiling = %q, want empty", got)
	}
}

func TestWalker_CustomDepth(t *testing.T) {
	w := &Walker{MaxDepth: 1}
	buf := wrap(stringField(1, "two levels down"), 2)
	if got := w.Walk(buf, 0); contains(got, "two levels down") {
		t.Errorf("MaxDepth=1 found string at depth 2: %q", got)
	}
	w.MaxDepth = 2
	if got := w.Walk(buf, 0); !contains(got, "two levels down") {
		t.Errorf("MaxDepth=2 missed string at depth 2: %q", got)
	}
}

func TestWalk_RandomInputTerminates(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		buf := make([]byte, rng.Intn(2048))
		rng.Read(buf)
		out := Run(buf, DefaultOptions())
		if out.Strings == nil {
			t.Fatalf("iteration %d: Strings is nil", i)
		}
		if len(out.Strings) > out.Candidates {
			t.Fatalf("iteration %d: %d strings from %d candidates", i, len(out.Strings), out.Candidates)
		}
	}
}
