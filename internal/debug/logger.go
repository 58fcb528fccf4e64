package debug

import (
	"io"
	"sync"

	log "github.com/sirupsen/logrus"
)

var (
	mu      sync.RWMutex
	enabled bool
	logger  = newLogger(io.Discard)
)

func newLogger(w io.Writer) *log.Logger {
	l := log.New()
	l.SetOutput(w)
	l.SetLevel(log.DebugLevel)
	l.SetFormatter(&log.TextFormatter{DisableColors: true, FullTimestamp: true})
	return l
}

// SetOutput sets the debug output destination. The TUI owns the terminal,
// so logging stays off until a file is given.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	if w == nil {
		w = io.Discard
	}
	logger.SetOutput(w)
	enabled = w != io.Discard
}

// Log writes a debug message
func Log(format string, args ...interface{}) {
	Logger().Debugf(format, args...)
}

// Enabled returns true if debug logging is enabled
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// Logger returns the shared logger
func Logger() *log.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Writer returns the current output, for libraries that want an io.Writer
func Writer() io.Writer {
	return Logger().Out
}

// WithField starts an entry carrying a single field
func WithField(key string, value interface{}) *log.Entry {
	return Logger().WithField(key, value)
}

// WithFields starts an entry carrying several fields
func WithFields(fields log.Fields) *log.Entry {
	return Logger().WithFields(fields)
}

// WithError starts an entry carrying err
func WithError(err error) *log.Entry {
	return Logger().WithError(err)
}
