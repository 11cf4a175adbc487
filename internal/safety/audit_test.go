package safety

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditWriter_DisabledIsNoOp(t *testing.T) {
	w, err := NewAuditWriter(AuditConfig{Enabled: false}, nil)
	require.NoError(t, err)
	w.Log(AuditEvent{Tool: "search_read"})
	require.NoError(t, w.Close())
}

func TestAuditWriter_WritesJSONLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.jsonl")

	w, err := NewAuditWriter(AuditConfig{Enabled: true, File: path, LogReads: true}, nil)
	require.NoError(t, err)

	w.Log(AuditEvent{Timestamp: time.Now(), SessionID: "s1", Tool: "search_read", Model: "res.partner", Operation: "read", Success: true})
	w.Log(AuditEvent{Timestamp: time.Now(), SessionID: "s1", Tool: "search_read", Model: "res.partner", Operation: "read", Success: true})
	require.NoError(t, w.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	count := 0
	for scanner.Scan() {
		var ev AuditEvent
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev))
		assert.Equal(t, "res.partner", ev.Model)
		count++
	}
	assert.Equal(t, 2, count)
}

func TestAuditWriter_ShouldLog(t *testing.T) {
	w, err := NewAuditWriter(AuditConfig{Enabled: true, File: filepath.Join(t.TempDir(), "a.jsonl"), LogReads: true, LogWrites: false, LogDeletes: true}, nil)
	require.NoError(t, err)
	defer w.Close()

	assert.True(t, w.ShouldLog(OpRead))
	assert.False(t, w.ShouldLog(OpWrite))
	assert.True(t, w.ShouldLog(OpUnlink))
}

func TestSanitizeValues_DropsBlockedAndBinaryFields(t *testing.T) {
	values := map[string]interface{}{
		"name":     "Alice",
		"password": "hunter2",
		"photo":    []byte{1, 2, 3},
	}
	out := SanitizeValues(values, map[string]bool{"password": true}, map[string]bool{"photo": true})
	assert.Equal(t, "Alice", out["name"])
	_, hasPassword := out["password"]
	assert.False(t, hasPassword)
	assert.Equal(t, "<binary>", out["photo"])
}
