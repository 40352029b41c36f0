package core

import (
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var once sync.Once

type logger struct {
	*log.Logger
}

var singleton *logger

func getLogger() *logger {
	if singleton == nil {
		once.Do(
			func() {
				l := log.NewWithOptions(os.Stderr, log.Options{
					ReportCaller:    true,
					ReportTimestamp: true,
					TimeFormat:      time.RFC3339,
					Prefix:          "Decals 🖌️ ",
				})
				l.SetLevel(log.InfoLevel)
				singleton = &logger{l}
			})
	}
	return singleton
}

// LogLevel mirrors the charmbracelet levels so callers outside this
// package do not need to import it directly.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// SetLogLevel adjusts the minimum level of the shared logger.
func SetLogLevel(level LogLevel) {
	switch level {
	case LogLevelDebug:
		getLogger().SetLevel(log.DebugLevel)
	case LogLevelInfo:
		getLogger().SetLevel(log.InfoLevel)
	case LogLevelWarn:
		getLogger().SetLevel(log.WarnLevel)
	case LogLevelError:
		getLogger().SetLevel(log.ErrorLevel)
	}
}

func LogDebug(msg string, args ...interface{}) {
	getLogger().Debugf(msg, args...)
}

func LogInfo(msg string, args ...interface{}) {
	getLogger().Infof(msg, args...)
}

func LogWarn(msg string, args ...interface{}) {
	getLogger().Warnf(msg, args...)
}

func LogError(msg string, args ...interface{}) {
	getLogger().Errorf(msg, args...)
}

func LogFatal(msg string, args ...interface{}) {
	getLogger().Fatalf(msg, args...)
}
