package transport

import (
	"encoding/json"
	"testing"
)

func mustPayload(t *testing.T, s string) map[string]json.RawMessage {
	t.Helper()
	var payload map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &payload); err != nil {
		t.Fatalf("Invalid payload %q: %v", s, err)
	}
	return payload
}
