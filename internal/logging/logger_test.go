package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewWithWriterLevelAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "warn", "app", "wallet")

	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %s", buf.String())
	}

	logger.Warn("kept", "wallet_id", "w-1")
	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if rec["app"] != "wallet" || rec["wallet_id"] != "w-1" || rec["msg"] != "kept" {
		t.Fatalf("unexpected record %v", rec)
	}
}

func TestNewWithWriterInvalidLevel(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter(&buf, "chatty").Info("hello")
	if buf.Len() == 0 {
		t.Fatalf("invalid level should default to info")
	}
}
