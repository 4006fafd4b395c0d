package meshes

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// logrusLogger adapts a logrus.FieldLogger to Logger.
type logrusLogger struct {
	base logrus.FieldLogger
}

// NewLogrusLogger returns a Logger that writes through l. Key-value pairs
// become logrus fields.
func NewLogrusLogger(l logrus.FieldLogger) Logger {
	return &logrusLogger{base: l}
}

func (l *logrusLogger) Debug(msg string, keysAndValues ...any) {
	l.with(keysAndValues).Debug(msg)
}

func (l *logrusLogger) Info(msg string, keysAndValues ...any) {
	l.with(keysAndValues).Info(msg)
}

func (l *logrusLogger) Warn(msg string, keysAndValues ...any) {
	l.with(keysAndValues).Warn(msg)
}

func (l *logrusLogger) Error(msg string, keysAndValues ...any) {
	l.with(keysAndValues).Error(msg)
}

// with converts alternating keys and values into logrus fields.
// A trailing key without a value is logged under "!BADKEY".
func (l *logrusLogger) with(keysAndValues []any) logrus.FieldLogger {
	if len(keysAndValues) == 0 {
		return l.base
	}

	fields := make(logrus.Fields, (len(keysAndValues)+1)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		if i+1 == len(keysAndValues) {
			fields["!BADKEY"] = keysAndValues[i]
			break
		}
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		fields[key] = keysAndValues[i+1]
	}
	return l.base.WithFields(fields)
}
