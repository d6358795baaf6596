package eventlog

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// submitBuffer bounds how many records can be queued before Submit starts
// dropping. Telemetry must never slow down or fail a request.
const submitBuffer = 256

// Logger serializes concurrent appends through a single writer goroutine,
// so each record lands as one complete line regardless of how many request
// tasks submit at once.
type Logger struct {
	ch   chan Record
	file *os.File
	wg   sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// New opens (creating if needed) the NDJSON file at path and starts the
// writer goroutine.
func New(path string) (*Logger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating event log directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening event log %s: %w", path, err)
	}

	l := &Logger{
		ch:   make(chan Record, submitBuffer),
		file: f,
	}
	l.wg.Add(1)
	go l.writeLoop()
	return l, nil
}

// Submit queues a record for appending. It never blocks: if the queue is
// full the record is dropped and reported to the operational log only.
func (l *Logger) Submit(rec Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		log.Printf("eventlog: submit after close, record dropped")
		return
	}
	select {
	case l.ch <- rec:
	default:
		log.Printf("eventlog: queue full, record dropped")
	}
}

// Close stops accepting records, drains the queue, and closes the file.
func (l *Logger) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.ch)
	l.mu.Unlock()

	l.wg.Wait()
	return l.file.Close()
}

func (l *Logger) writeLoop() {
	defer l.wg.Done()
	for rec := range l.ch {
		rec.Timestamp = time.Now().UTC().Format(time.RFC3339)
		line, err := json.Marshal(rec)
		if err != nil {
			log.Printf("eventlog: marshalling record: %v", err)
			continue
		}
		if _, err := l.file.Write(append(line, '\n')); err != nil {
			log.Printf("eventlog: writing record: %v", err)
		}
	}
}
