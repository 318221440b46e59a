package logger

import (
	"os"
	"runtime"
	"time"

	log "github.com/sirupsen/logrus"
)

var logger = log.New()

func init() {
	logger.Out = os.Stdout
	logger.Formatter = &log.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
	}
	level, err := log.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		level = log.DebugLevel
	}
	logger.SetLevel(level)
}

// SetLevel overrides the level picked up from LOG_LEVEL.
func SetLevel(level string) {
	if l, err := log.ParseLevel(level); err == nil {
		logger.SetLevel(l)
	}
}

// GetLogger returns an entry tagged with the caller's function, file and line.
func GetLogger() *log.Entry {
	function, file, line, _ := runtime.Caller(1)

	functionObject := runtime.FuncForPC(function)
	name := ""
	if functionObject != nil {
		name = functionObject.Name()
	}
	return logger.WithFields(log.Fields{
		"function": name,
		"file":     file,
		"line":     line,
	})
}
