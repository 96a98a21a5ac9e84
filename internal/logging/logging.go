package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

const defaultLogFile = "lasttab.log"

var (
	mu           sync.Mutex
	traceEnabled bool
	logPath      = defaultLogFile

	logger = zerolog.New(fileWriter{}).Level(zerolog.InfoLevel).With().Timestamp().Logger()
	tracer = zerolog.New(fileWriter{}).Level(zerolog.TraceLevel).With().Timestamp().Logger()
)

// fileWriter appends each entry to the current log path. The file is opened
// per write so the daemon and popup processes can share one log.
type fileWriter struct{}

func (fileWriter) Write(p []byte) (int, error) {
	mu.Lock()
	path := logPath
	mu.Unlock()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging failed: %v\n", err)
		return 0, err
	}
	defer f.Close()
	return f.Write(p)
}

// Error writes err to the shared log file.
func Error(err error) {
	if err == nil {
		return
	}
	current().Error().Err(err).Send()
}

// Warn logs a message at warn level with optional key/value fields.
func Warn(msg string, fields map[string]interface{}) {
	current().Warn().Fields(fields).Msg(msg)
}

// Info logs a lifecycle message.
func Info(msg string, fields map[string]interface{}) {
	current().Info().Fields(fields).Msg(msg)
}

// Debug logs a diagnostic message.
func Debug(msg string, fields map[string]interface{}) {
	current().Debug().Fields(fields).Msg(msg)
}

// SetLevel changes the minimum level for Error/Warn/Info/Debug. Trace
// entries are controlled separately by SetTraceEnabled.
func SetLevel(name string) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return fmt.Errorf("parse log level %q: %w", name, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	mu.Lock()
	logger = logger.Level(lvl)
	mu.Unlock()
	return nil
}

// SetTraceEnabled toggles emission of structured trace entries.
func SetTraceEnabled(enabled bool) {
	mu.Lock()
	traceEnabled = enabled
	mu.Unlock()
}

// TraceEnabled reports whether Trace currently writes anything.
func TraceEnabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return traceEnabled
}

// Trace appends a structured JSON entry to the shared log when tracing is enabled.
func Trace(event string, payload interface{}) {
	if !TraceEnabled() {
		return
	}
	evt := tracer.Trace().Str("event", event)
	if payload != nil {
		evt = evt.Interface("payload", payload)
	}
	evt.Send()
}

// Configure sets the log destination. Empty values fall back to the default
// path. Directories are created automatically when missing.
func Configure(path string) {
	mu.Lock()
	defer mu.Unlock()
	if strings.TrimSpace(path) == "" {
		logPath = defaultLogFile
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "unable to create log directory: %v\n", err)
		logPath = defaultLogFile
		return
	}
	logPath = path
}

// Path returns the active log destination.
func Path() string {
	mu.Lock()
	defer mu.Unlock()
	return logPath
}

func current() *zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	l := logger
	return &l
}
