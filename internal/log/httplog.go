package log

import (
	"sync"
	"time"
)

// HTTP log buffer is separate from the main log output
var httpLogBuffer *LogBuffer
var httpLogBufferOnce sync.Once

// HTTPLogEntry represents an HTTP request/response log entry
type HTTPLogEntry struct {
	Timestamp  time.Time     `json:"timestamp"`
	Method     string        `json:"method"`
	Path       string        `json:"path"`
	Status     int           `json:"status"`
	Duration   time.Duration `json:"duration"`
	Size       int           `json:"size"`
	RemoteAddr string        `json:"remote_addr"`
	UserAgent  string        `json:"user_agent"`
	Error      string        `json:"error,omitempty"`
}

// LogBuffer keeps the most recent HTTP log entries in a fixed-size ring
type LogBuffer struct {
	mu      sync.RWMutex
	entries []HTTPLogEntry
	next    int
	full    bool
}

// NewLogBuffer creates a ring buffer holding up to size entries
func NewLogBuffer(size int) *LogBuffer {
	return &LogBuffer{entries: make([]HTTPLogEntry, size)}
}

// AddEntry appends an entry, overwriting the oldest one when the buffer is full
func (b *LogBuffer) AddEntry(e HTTPLogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[b.next] = e
	b.next = (b.next + 1) % len(b.entries)
	if b.next == 0 {
		b.full = true
	}
}

// Entries returns the buffered entries, oldest first
func (b *LogBuffer) Entries() []HTTPLogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.full {
		return append([]HTTPLogEntry(nil), b.entries[:b.next]...)
	}
	out := make([]HTTPLogEntry, 0, len(b.entries))
	out = append(out, b.entries[b.next:]...)
	return append(out, b.entries[:b.next]...)
}

// GetHTTPLogBuffer returns the HTTP log buffer instance, creating it if necessary
func GetHTTPLogBuffer() *LogBuffer {
	httpLogBufferOnce.Do(func() {
		httpLogBuffer = NewLogBuffer(1000) // Keep last 1000 HTTP log entries
	})
	return httpLogBuffer
}

// LogHTTPRequest records an HTTP request in the HTTP log buffer and writes it to the
// main log at debug level (error level if the request failed)
func LogHTTPRequest(method, path string, status int, duration time.Duration, size int, remoteAddr, userAgent string, err error) {
	entry := HTTPLogEntry{
		Timestamp:  time.Now(),
		Method:     method,
		Path:       path,
		Status:     status,
		Duration:   duration,
		Size:       size,
		RemoteAddr: remoteAddr,
		UserAgent:  userAgent,
	}

	fields := []interface{}{
		"method", method,
		"path", path,
		"status", status,
		"duration_ms", duration.Milliseconds(),
		"size", size,
		"remote_addr", remoteAddr,
	}

	if err != nil {
		entry.Error = err.Error()
		Errorw("http request failed", append(fields, "error", err)...)
	} else {
		Debugw("http request", fields...)
	}

	GetHTTPLogBuffer().AddEntry(entry)
}
