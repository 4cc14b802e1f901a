package common

import (
	"fmt"
	"github.com/lni/dragonboat/v4/logger"
	"log"
	"os"
	"strings"
)

// Logger tags used across the module. Every package logs under exactly one of them.
const (
	LogTagClient    = "ipc/client"
	LogTagServer    = "ipc/server"
	LogTagTransport = "ipc/transport"
	LogTagWrapper   = "ipc/wrapper"
	LogTagSession   = "ipc/session"
)

// logTags lists every tag that is configured by InitLoggers
var logTags = []string{LogTagClient, LogTagServer, LogTagTransport, LogTagWrapper, LogTagSession}

// --------------------------------------------------------------------------
// Custom Logger (implements dragonboats logger.ILogger)
// --------------------------------------------------------------------------

// ipcLogger implements the ILogger interface with custom formatting
type ipcLogger struct {
	name   string
	level  logger.LogLevel
	logger *log.Logger
}

func (l *ipcLogger) SetLevel(level logger.LogLevel) {
	l.level = level
}

func (l *ipcLogger) Debugf(format string, args ...interface{}) {
	if l.level >= logger.DEBUG {
		l.log("DEBUG", format, args...)
	}
}

func (l *ipcLogger) Infof(format string, args ...interface{}) {
	if l.level >= logger.INFO {
		l.log("INFO", format, args...)
	}
}

func (l *ipcLogger) Warningf(format string, args ...interface{}) {
	if l.level >= logger.WARNING {
		l.log("WARN", format, args...)
	}
}

func (l *ipcLogger) Errorf(format string, args ...interface{}) {
	if l.level >= logger.ERROR {
		l.log("ERROR", format, args...)
	}
}

func (l *ipcLogger) Panicf(format string, args ...interface{}) {
	if l.level >= logger.CRITICAL {
		panic(fmt.Sprintf(format, args...))
	}
}

// log formats and writes a log message
func (l *ipcLogger) log(levelStr string, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	l.logger.Printf("%-5s | %-15s | %s", levelStr, l.name, message)
}

// --------------------------------------------------------------------------
// Logger Factory
// --------------------------------------------------------------------------

// CreateLogger creates a logger for the given source tag (matches dragonboat's logger.Factory)
func CreateLogger(pkgName string) logger.ILogger {
	// Log to stderr, stdout belongs to the command output (e.g. results of dipc call)
	stdLogger := log.New(os.Stderr, "", log.Ldate|log.Ltime)

	return &ipcLogger{
		name:   pkgName,
		level:  logger.INFO,
		logger: stdLogger,
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// ParseLogLevel converts a string level to logger.LogLevel
func ParseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG, nil
	case "info", "":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return logger.INFO, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

// --------------------------------------------------------------------------
// Logger initialization
// --------------------------------------------------------------------------

// InitLoggers installs the custom logger factory and sets the level of all ipc loggers.
// It must be called once at startup, before any package level logger is used.
func InitLoggers(level string) error {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return err
	}

	logger.SetLoggerFactory(CreateLogger)

	for _, tag := range logTags {
		logger.GetLogger(tag).SetLevel(lvl)
	}
	return nil
}
