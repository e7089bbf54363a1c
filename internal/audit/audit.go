package audit

import (
	"encoding/json"
	"os"
	"os/user"
	"path/filepath"
	"sync"
	"time"
)

const timestampLayout = "2006-01-02T15:04:05.000000Z"

// Entry represents a single audit log entry.
type Entry struct {
	Timestamp   string `json:"ts"`
	User        string `json:"user,omitempty"`
	RunID       string `json:"run_id,omitempty"`
	Item        *int   `json:"item,omitempty"`
	Operation   string `json:"op"`
	Method      string `json:"method,omitempty"`
	Path        string `json:"path,omitempty"`
	Environment string `json:"env,omitempty"`
	StatusCode  int    `json:"status,omitempty"`
	ResultCode  *int   `json:"result,omitempty"`
	Error       string `json:"error,omitempty"`
	DurationMS  int64  `json:"duration_ms"`
}

// Succeeded reports whether the call completed with result 0.
func (e Entry) Succeeded() bool {
	return e.Error == "" && e.ResultCode != nil && *e.ResultCode == 0
}

// Writer appends entries to one log file. A nil Writer discards entries.
type Writer struct {
	path string
	user string
	mu   sync.Mutex
}

// New returns a writer for path, or nil when path is empty.
func New(path string) *Writer {
	if path == "" {
		return nil
	}
	w := &Writer{path: path}
	if u, err := user.Current(); err == nil {
		w.user = u.Username
	}
	return w
}

// Path returns the log file location.
func (w *Writer) Path() string {
	if w == nil {
		return ""
	}
	return w.path
}

// Log appends an entry to the audit log.
// If logging fails, it does not return an error.
// Calls should not fail just because audit logging failed.
func (w *Writer) Log(entry Entry) {
	if w == nil {
		return
	}

	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format(timestampLayout)
	}
	if entry.User == "" {
		entry.User = w.user
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(w.path), 0700); err != nil {
		return
	}

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return
	}
	defer f.Close()

	_, _ = f.Write(append(data, '\n'))
}

// ReadEntries reads all entries from the audit log at path.
// Returns an empty slice if the log doesn't exist.
func ReadEntries(path string) ([]Entry, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return ParseEntries(data)
}

// ParseEntries parses JSON Lines data into audit entries.
// Malformed lines are silently skipped.
func ParseEntries(data []byte) ([]Entry, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var entries []Entry
	start := 0

	for i := 0; i <= len(data); i++ {
		if i == len(data) || data[i] == '\n' {
			line := data[start:i]
			start = i + 1

			if len(line) == 0 {
				continue
			}

			var entry Entry
			if err := json.Unmarshal(line, &entry); err != nil {
				continue
			}
			entries = append(entries, entry)
		}
	}

	return entries, nil
}

// Tail returns the last n entries, or all of them when n <= 0.
func Tail(entries []Entry, n int) []Entry {
	if n <= 0 || n >= len(entries) {
		return entries
	}
	return entries[len(entries)-n:]
}
