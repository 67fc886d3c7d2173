package core

// logger.go
import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Logger — обёртка над zerolog с вызовами в стиле LogInfo(msg, fields).
type Logger struct {
	zl zerolog.Logger
}

var (
	loggerMu     sync.RWMutex
	globalLogger = NewLogger(os.Stderr, "info")
)

// NewLogger создаёт JSON-логгер с меткой времени. Неизвестный уровень → info.
func NewLogger(w io.Writer, level string) *Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return &Logger{zl: zerolog.New(w).Level(lvl).With().Timestamp().Logger()}
}

// SetLogger подменяет глобальный логгер (на старте или в тестах).
func SetLogger(l *Logger) {
	if l == nil {
		return
	}
	loggerMu.Lock()
	globalLogger = l
	loggerMu.Unlock()
}

func current() *Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return globalLogger
}

// Zerolog — доступ к исходному логгеру для библиотек, которым нужен zerolog.Logger.
func (l *Logger) Zerolog() zerolog.Logger { return l.zl }

func (l *Logger) log(ev *zerolog.Event, msg string, fields map[string]interface{}) {
	for k, v := range fields {
		if err, ok := v.(error); ok {
			ev = ev.AnErr(k, err)
			continue
		}
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

func LogDebug(msg string, fields map[string]interface{}) {
	l := current()
	l.log(l.zl.Debug(), msg, fields)
}

func LogInfo(msg string, fields map[string]interface{}) {
	l := current()
	l.log(l.zl.Info(), msg, fields)
}

func LogWarn(msg string, fields map[string]interface{}) {
	l := current()
	l.log(l.zl.Warn(), msg, fields)
}

func LogError(msg string, fields map[string]interface{}) {
	l := current()
	l.log(l.zl.Error(), msg, fields)
}
