package script

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestApply_DropAndRewrite(t *testing.T) {
	code := `
var filter = {
  keep: function (s, ctx) {
    if (s.indexOf("drop") === 0) return false;
    if (s.indexOf("upper") === 0) return s.toUpperCase();
    if (s === "null me") return null;
    return 1;
  }
};`
	f, err := Load("test.js", code)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	got, err := f.Apply(context.Background(), "input.pb", []string{"drop this", "upper case", "keep this", "null me"})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	want := []string{"UPPER CASE", "keep this"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Apply = %q, want %q", got, want)
	}
}

func TestApply_StatePersists(t *testing.T) {
	code := `
var filter = {
  onInit: function (ctx) { ctx.state.seen = {}; },
  keep: function (s, ctx) {
    if (ctx.state.seen[s]) return false;
    ctx.state.seen[s] = true;
    return true;
  }
};`
	f, err := Load("dedupe.js", code)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	got, err := f.Apply(context.Background(), "", []string{"one line", "two line", "one line", "two line", "three"})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	want := []string{"one line", "two line", "three"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Apply = %q, want %q", got, want)
	}
}

func TestApply_ContextFields(t *testing.T) {
	code := `
var filter = {
  keep: function (s, ctx) { return ctx.source + "#" + ctx.index + ":" + s; }
};`
	f, err := Load("ctx.js", code)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	got, err := f.Apply(context.Background(), "conv.pb", []string{"alpha", "beta"})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	want := []string{"conv.pb#0:alpha", "conv.pb#1:beta"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Apply = %q, want %q", got, want)
	}
}

func TestApply_JSONPathHelper(t *testing.T) {
	code := `
var filter = {
  keep: function (s) {
    var text = jsonPath(s, "message.text");
    if (text !== null) return text;
    return true;
  }
};`
	f, err := Load("json.js", code)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	got, err := f.Apply(context.Background(), "", []string{`{"message":{"text":"hello from json"}}`, "plain text"})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	want := []string{"hello from json", "plain text"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Apply = %q, want %q", got, want)
	}
}

func TestApply_Helpers(t *testing.T) {
	code := `
var filter = {
  keep: function (s) {
    if (s === "b64") return base64Decode("aGVsbG8gd29ybGQ=");
    var m = matchRegex("^id=(\\d+)$", s);
    if (m !== null) return "number " + m[1];
    log("kept", s);
    return true;
  }
};`
	f, err := Load("helpers.js", code)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	got, err := f.Apply(context.Background(), "", []string{"b64", "id=42", "other"})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	want := []string{"hello world", "number 42", "other"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Apply = %q, want %q", got, want)
	}
}

func TestLoad_MissingFilter(t *testing.T) {
	tests := []string{
		`var x = 1;`,
		`var filter = {};`,
		`var filter = { keep: 3 };`,
	}
	for _, code := range tests {
		if _, err := Load("bad.js", code); !errors.Is(err, ErrNoFilter) {
			t.Errorf("Load(%q) error = %v, want ErrNoFilter", code, err)
		}
	}
}

func TestLoad_SyntaxError(t *testing.T) {
	if _, err := Load("broken.js", `var filter = {`); err == nil {
		t.Error("Load should fail on a syntax error")
	}
}

func TestApply_Timeout(t *testing.T) {
	code := `var filter = { keep: function () { for (;;) {} } };`
	f, err := Load("loop.js", code, WithTimeout(50*time.Millisecond))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	_, err = f.Apply(context.Background(), "", []string{"anything"})
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("Apply error = %v, want ErrTimeout", err)
	}
}

func TestApply_Throw(t *testing.T) {
	code := `var filter = { keep: function () { throw new Error("boom"); } };`
	f, err := Load("throw.js", code)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := f.Apply(context.Background(), "", []string{"anything"}); err == nil {
		t.Error("Apply should return the thrown error")
	}
}

func TestApply_CancelledContext(t *testing.T) {
	f, err := Load("ok.js", `var filter = { keep: function () { return true; } };`)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.Apply(ctx, "", []string{"anything"}); !errors.Is(err, context.Canceled) {
		t.Errorf("Apply error = %v, want context.Canceled", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filter.js")
	if err := os.WriteFile(path, []byte(`var filter = { keep: function (s) { return s.length > 3; } };`), 0644); err != nil {
		t.Fatal(err)
	}
	f, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if f.Name() != path {
		t.Errorf("Name() = %q, want %q", f.Name(), path)
	}
	got, err := f.Apply(context.Background(), "", []string{"abc", "abcd"})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"abcd"}) {
		t.Errorf("Apply = %q, want [abcd]", got)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.js")); err == nil {
		t.Error("LoadFile on a missing file should fail")
	}
}
