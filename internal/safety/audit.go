package safety

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditEvent is one JSON-lines record in the audit log. Values are
// sanitized before being attached: binary field contents are dropped to
// names only, and any field in the default or configured field blocklist
// never appears here at all.
type AuditEvent struct {
	Timestamp  time.Time              `json:"timestamp"`
	SessionID  string                 `json:"session_id"`
	Tool       string                 `json:"tool"`
	Model      string                 `json:"model,omitempty"`
	Operation  string                 `json:"operation"`
	Values     map[string]interface{} `json:"values,omitempty"`
	ResultID   interface{}            `json:"result_id,omitempty"`
	Success    bool                   `json:"success"`
	DurationMS int64                  `json:"duration_ms"`
	UID        int                    `json:"uid,omitempty"`
}

// AuditConfig mirrors the compiled AuditConfig from internal/config.
type AuditConfig struct {
	Enabled    bool
	File       string
	LogReads   bool
	LogWrites  bool
	LogDeletes bool
}

const auditBufferSize = 1000

// AuditWriter appends audit events to a JSON-lines file without blocking
// the tool call path: Log enqueues onto a channel and a background
// goroutine drains it to disk.
type AuditWriter struct {
	cfg    AuditConfig
	file   *os.File
	buffer chan AuditEvent
	log    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewAuditWriter opens (creating if necessary) the configured audit file
// and starts the background writer. If auditing is disabled, it returns a
// writer whose Log calls are no-ops.
func NewAuditWriter(cfg AuditConfig, log *slog.Logger) (*AuditWriter, error) {
	if log == nil {
		log = slog.Default()
	}
	w := &AuditWriter{cfg: cfg, log: log, buffer: make(chan AuditEvent, auditBufferSize)}
	if !cfg.Enabled {
		return w, nil
	}

	if dir := filepath.Dir(cfg.File); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("safety: create audit log directory: %w", err)
		}
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("safety: open audit log: %w", err)
	}
	w.file = f

	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.wg.Add(1)
	go w.writeLoop()
	return w, nil
}

// ShouldLog reports whether an event of the given kind is enabled, per the
// per-kind read/write/delete toggles.
func (w *AuditWriter) ShouldLog(op Operation) bool {
	if !w.cfg.Enabled {
		return false
	}
	switch {
	case readOps[op]:
		return w.cfg.LogReads
	case op == OpUnlink:
		return w.cfg.LogDeletes
	default:
		return w.cfg.LogWrites
	}
}

// Log enqueues an event for asynchronous writing. If the buffer is full the
// event is dropped and a warning logged, matching the writer's
// non-blocking contract with respect to the tool path.
func (w *AuditWriter) Log(event AuditEvent) {
	if !w.cfg.Enabled {
		return
	}
	select {
	case w.buffer <- event:
	default:
		w.log.Warn("audit buffer full, dropping event", "tool", event.Tool, "session_id", event.SessionID)
	}
}

func (w *AuditWriter) writeLoop() {
	defer w.wg.Done()
	for {
		select {
		case event := <-w.buffer:
			w.write(event)
		case <-w.ctx.Done():
			for {
				select {
				case event := <-w.buffer:
					w.write(event)
				default:
					return
				}
			}
		}
	}
}

func (w *AuditWriter) write(event AuditEvent) {
	line, err := json.Marshal(event)
	if err != nil {
		w.log.Error("failed to marshal audit event", "error", err)
		return
	}
	line = append(line, '\n')
	if _, err := w.file.Write(line); err != nil {
		w.log.Error("failed to write audit event", "error", err)
	}
}

// Close stops the background writer, draining any buffered events, and
// closes the underlying file. Safe to call on a disabled writer.
func (w *AuditWriter) Close() error {
	if !w.cfg.Enabled {
		return nil
	}
	w.cancel()
	w.wg.Wait()
	return w.file.Close()
}

// SanitizeValues strips binary field contents (retained by name only) and
// any field in the blocklist from a values map before it reaches the audit
// log, so secrets and large payloads never land on disk.
func SanitizeValues(values map[string]interface{}, fieldBlocklist map[string]bool, binaryFields map[string]bool) map[string]interface{} {
	if values == nil {
		return nil
	}
	out := make(map[string]interface{}, len(values))
	for k, v := range values {
		if fieldBlocklist[k] {
			continue
		}
		if binaryFields[k] {
			out[k] = "<binary>"
			continue
		}
		out[k] = v
	}
	return out
}
