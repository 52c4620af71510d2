package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewJSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "warn", "json")

	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %q", buf.String())
	}

	logger.Warn("kept", "k", "v")
	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected json output: %v", err)
	}
	if line["msg"] != "kept" || line["k"] != "v" {
		t.Fatalf("unexpected log line %v", line)
	}
}

func TestNewTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "bogus", "text")
	logger.Info("hello")
	if !bytes.Contains(buf.Bytes(), []byte("hello")) {
		t.Fatalf("expected text output, got %q", buf.String())
	}
	if json.Valid(bytes.TrimSpace(buf.Bytes())) {
		t.Fatalf("text format should not emit json")
	}
}

func TestMaskEmail(t *testing.T) {
	tests := map[string]string{
		"test@user.com": "t***@user.com",
		"a@b.co":        "a***@b.co",
		"@nolocal.com":  "***",
		"no-at-sign":    "***",
	}
	for in, want := range tests {
		if got := MaskEmail(in); got != want {
			t.Fatalf("MaskEmail(%q) = %q, want %q", in, got, want)
		}
	}
}
