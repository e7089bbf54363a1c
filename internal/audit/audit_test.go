package audit

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func intPtr(i int) *int { return &i }

func TestLog_CreatesFileAndDirectory(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "nested", "audit.jsonl")
	w := New(logPath)

	w.Log(Entry{Operation: "encrypt_payload", Environment: "uat"})

	info, err := os.Stat(logPath)
	if err != nil {
		t.Fatalf("Audit log file was not created: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected mode 0600, got %v", info.Mode().Perm())
	}
}

func TestLog_AppendsEntries(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.jsonl")
	w := New(logPath)

	w.Log(Entry{Operation: "encrypt_payload", ResultCode: intPtr(0)})
	w.Log(Entry{Operation: "decrypt_payload", Error: "api returned result 4001"})
	w.Log(Entry{Operation: "upload_document", RunID: "run-1", Item: intPtr(0)})

	entries, err := ReadEntries(logPath)
	if err != nil {
		t.Fatalf("Failed to read entries: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}
	if entries[0].Operation != "encrypt_payload" || !entries[0].Succeeded() {
		t.Errorf("Unexpected first entry %+v", entries[0])
	}
	if entries[1].Succeeded() {
		t.Error("Expected failed entry not to count as succeeded")
	}
	if entries[2].Item == nil || *entries[2].Item != 0 || entries[2].RunID != "run-1" {
		t.Errorf("Expected item index 0 to survive, got %+v", entries[2])
	}
}

func TestLog_TimestampFormat(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.jsonl")
	New(logPath).Log(Entry{Operation: "raw"})

	entries, err := ReadEntries(logPath)
	if err != nil || len(entries) != 1 {
		t.Fatalf("Failed to read entry: %v", err)
	}
	if _, err := time.Parse(timestampLayout, entries[0].Timestamp); err != nil {
		t.Errorf("Timestamp %q does not match layout: %v", entries[0].Timestamp, err)
	}
}

func TestLog_OmitsEmptyFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.jsonl")
	New(logPath).Log(Entry{Operation: "raw", User: "ops"})

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Failed to read log: %v", err)
	}
	for _, field := range []string{"run_id", "item", "result", "error", "status"} {
		if strings.Contains(string(data), `"`+field+`"`) {
			t.Errorf("Expected %s to be omitted, got %s", field, data)
		}
	}
}

func TestLog_NilWriter(t *testing.T) {
	var w *Writer
	w.Log(Entry{Operation: "raw"})
	if w.Path() != "" {
		t.Error("Expected empty path for nil writer")
	}
	if New("") != nil {
		t.Error("Expected New(\"\") to return nil")
	}
}

func TestLog_Concurrent(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.jsonl")
	w := New(logPath)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w.Log(Entry{Operation: "encrypt_payload", Item: intPtr(i)})
		}(i)
	}
	wg.Wait()

	entries, err := ReadEntries(logPath)
	if err != nil {
		t.Fatalf("Failed to read entries: %v", err)
	}
	if len(entries) != 50 {
		t.Errorf("Expected 50 intact entries, got %d", len(entries))
	}
}

func TestParseEntries(t *testing.T) {
	data := []byte(`{"ts":"2024-03-01T00:00:00.000000Z","op":"encrypt_payload","result":0}
not json
{"ts":"2024-03-01T00:00:01.000000Z","op":"decrypt_payload","error":"boom"}
`)
	entries, err := ParseEntries(data)
	if err != nil {
		t.Fatalf("ParseEntries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected malformed line to be skipped, got %d entries", len(entries))
	}

	if entries, _ := ParseEntries(nil); entries != nil {
		t.Errorf("Expected nil for empty data, got %v", entries)
	}
}

func TestReadEntries_Missing(t *testing.T) {
	entries, err := ReadEntries(filepath.Join(t.TempDir(), "missing.jsonl"))
	if err != nil || entries != nil {
		t.Errorf("Expected nil, nil for missing log, got %v, %v", entries, err)
	}
}

func TestTail(t *testing.T) {
	entries := []Entry{{Operation: "a"}, {Operation: "b"}, {Operation: "c"}}

	if got := Tail(entries, 2); len(got) != 2 || got[0].Operation != "b" {
		t.Errorf("Tail(2) = %+v", got)
	}
	if got := Tail(entries, 0); len(got) != 3 {
		t.Errorf("Tail(0) should return all entries, got %d", len(got))
	}
	if got := Tail(entries, 10); len(got) != 3 {
		t.Errorf("Tail(10) should return all entries, got %d", len(got))
	}
}
