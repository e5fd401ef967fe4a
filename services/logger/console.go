package logsvc

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/user"
)

// ConsoleLogger writes human-readable logs to the console. Used in DEV|TEST mode.
type ConsoleLogger struct {
	log     zerolog.Logger
	enabled bool
}

var _ core.Logger = (*ConsoleLogger)(nil)

func NewConsoleLogger(name string, out ...io.Writer) *ConsoleLogger {
	var w io.Writer = os.Stdout
	if len(out) > 0 {
		w = out[0]
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: w}).
		With().
		Timestamp().
		Str("app", name).
		Logger()
	return &ConsoleLogger{log: log, enabled: true}
}

func (l *ConsoleLogger) Enable(enabled bool) {
	l.enabled = enabled
}

func (l *ConsoleLogger) emit(evt *zerolog.Event, msg string, args []interface{}) {
	if !l.enabled {
		return
	}
	for _, arg := range args {
		switch v := arg.(type) {
		case error:
			evt = evt.Err(v)
		case user.User:
			evt = evt.Str("user", v.Username)
		case map[string]interface{}:
			evt = evt.Fields(v)
		}
	}
	evt.Msg(msg)
}

func (l *ConsoleLogger) Debug(msg string, args ...interface{}) {
	l.emit(l.log.Debug(), msg, args)
}

func (l *ConsoleLogger) Info(msg string, args ...interface{}) {
	l.emit(l.log.Info(), msg, args)
}

func (l *ConsoleLogger) Warn(msg string, args ...interface{}) {
	l.emit(l.log.Warn(), msg, args)
}

func (l *ConsoleLogger) Error(msg string, args ...interface{}) {
	l.emit(l.log.Error(), msg, args)
}

func (l *ConsoleLogger) Fatal(msg string, args ...interface{}) {
	l.emit(l.log.Fatal(), msg, args)
}
