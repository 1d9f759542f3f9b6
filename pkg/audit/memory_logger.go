package audit

import (
	"context"
	"sync"
)

// MemoryLogger keeps records in memory
type MemoryLogger struct {
	mu      sync.Mutex
	records []*Record
	err     error
}

// NewMemoryLogger creates an empty in-memory logger
func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{}
}

// Append implements Logger.Append
func (m *MemoryLogger) Append(ctx context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}

	cp := *rec
	cp.Fields = append([]Field(nil), rec.Fields...)
	m.records = append(m.records, &cp)
	return nil
}

// SetError makes subsequent appends fail with err; nil clears it
func (m *MemoryLogger) SetError(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// Records returns the appended records in order
func (m *MemoryLogger) Records() []*Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Record(nil), m.records...)
}

// Lines returns the appended records formatted as audit lines
func (m *MemoryLogger) Lines() []string {
	recs := m.Records()
	lines := make([]string, len(recs))
	for i, r := range recs {
		lines[i] = r.Format()
	}
	return lines
}

// Close implements Logger.Close
func (m *MemoryLogger) Close() error { return nil }
