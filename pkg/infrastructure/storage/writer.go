package storage

import (
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/WangYihang/wiki-deadlink-finder/pkg/domain/entity"
)

// LogWriter implements repository.LogWriter as two JSONL files.
// An empty path disables that log.
type LogWriter struct {
	probeFile  io.WriteCloser
	lookupFile io.WriteCloser
	probeEnc   *json.Encoder
	lookupEnc  *json.Encoder
	mu         sync.Mutex
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// NewLogWriter creates a new log writer
func NewLogWriter(probeLogFile, lookupLogFile string) (*LogWriter, error) {
	probeFile, err := openLog(probeLogFile)
	if err != nil {
		return nil, err
	}

	lookupFile, err := openLog(lookupLogFile)
	if err != nil {
		probeFile.Close()
		return nil, err
	}

	return &LogWriter{
		probeFile:  probeFile,
		lookupFile: lookupFile,
		probeEnc:   json.NewEncoder(probeFile),
		lookupEnc:  json.NewEncoder(lookupFile),
	}, nil
}

func openLog(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{io.Discard}, nil
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

// WriteProbeLog writes one probe attempt
func (w *LogWriter) WriteProbeLog(entry entity.ProbeLog) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.probeEnc.Encode(entry)
}

// WriteLookupLog writes one WHOIS or DNS lookup
func (w *LogWriter) WriteLookupLog(entry entity.LookupLog) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.lookupEnc.Encode(entry)
}

// Close closes all log writers
func (w *LogWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	err1 := w.probeFile.Close()
	err2 := w.lookupFile.Close()

	if err1 != nil {
		return err1
	}
	return err2
}
