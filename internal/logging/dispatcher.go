package logging

import "github.com/rs/zerolog"

// badKey labels a value logged without a string key, as log/slog does.
const badKey = "!BADKEY"

// DispatcherLogger writes dispatcher events through zerolog, tagged with
// component=dispatcher.
type DispatcherLogger struct {
	logger zerolog.Logger
}

func NewDispatcherLogger(logger zerolog.Logger) *DispatcherLogger {
	return &DispatcherLogger{logger: logger.With().Str("component", "dispatcher").Logger()}
}

func (l *DispatcherLogger) Debug(msg string, keysAndValues ...any) {
	l.logger.Debug().Fields(toFields(keysAndValues)).Msg(msg)
}

func (l *DispatcherLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Info().Fields(toFields(keysAndValues)).Msg(msg)
}

func (l *DispatcherLogger) Error(msg string, keysAndValues ...any) {
	l.logger.Error().Fields(toFields(keysAndValues)).Msg(msg)
}

// toFields pairs keys with values the way slog.Logger does: a non-string
// key or a trailing key without value is logged under !BADKEY. Errors are
// stored as their message.
func toFields(keysAndValues []any) map[string]any {
	fields := make(map[string]any, len(keysAndValues)/2)
	for i := 0; i < len(keysAndValues); {
		key, ok := keysAndValues[i].(string)
		if !ok || i+1 == len(keysAndValues) {
			fields[badKey] = keysAndValues[i]
			i++
			continue
		}
		v := keysAndValues[i+1]
		if err, isErr := v.(error); isErr && err != nil {
			v = err.Error()
		}
		fields[key] = v
		i += 2
	}
	return fields
}
