package jsonl

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
)

// Writer appends values to a JSON lines file.
type Writer[T any] struct {
	mu   sync.Mutex
	file *os.File
	buf  *bufio.Writer
	enc  *json.Encoder
}

// Open creates the parent directory and opens path. truncate starts a fresh file.
func Open[T any](path string, truncate bool) (*Writer[T], error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if truncate {
		flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open output file: %w", err)
	}

	buf := bufio.NewWriter(f)
	return &Writer[T]{file: f, buf: buf, enc: json.NewEncoder(buf)}, nil
}

// Write encodes one line per value and flushes the batch.
func (w *Writer[T]) Write(values []T) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return fmt.Errorf("writer is closed")
	}
	for _, v := range values {
		if err := w.enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode line: %w", err)
		}
	}
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}
	return nil
}

// Close flushes and closes the file.
func (w *Writer[T]) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	flushErr := w.buf.Flush()
	closeErr := w.file.Close()
	w.file = nil
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}
