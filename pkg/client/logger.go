package client

import (
	"fmt"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"github.com/rget/rget/pkg/logging"
)

// leveledLogger routes retryablehttp's internal logging into zerolog.
type leveledLogger struct{}

var _ retryablehttp.LeveledLogger = &leveledLogger{}

func (l *leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log(zerolog.ErrorLevel, msg, keysAndValues)
}

func (l *leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log(zerolog.InfoLevel, msg, keysAndValues)
}

// Debug is what retryablehttp uses for "performing request", so trace keeps it out of -v output.
func (l *leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.log(zerolog.TraceLevel, msg, keysAndValues)
}

func (l *leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log(zerolog.WarnLevel, msg, keysAndValues)
}

func (l *leveledLogger) log(level zerolog.Level, msg string, keysAndValues []interface{}) {
	logger := logging.GetLogger()
	event := logger.WithLevel(level)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		event = event.Interface(fmt.Sprint(keysAndValues[i]), keysAndValues[i+1])
	}
	event.Msg(msg)
}
