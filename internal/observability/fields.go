package observability

import (
	"time"

	"go.uber.org/zap"
)

// Field aliases zap.Field so call sites don't need to import zap directly.
type Field = zap.Field

// String constructs a string field.
func String(key, value string) Field {
	return zap.String(key, value)
}

// Int constructs an int field.
func Int(key string, value int) Field {
	return zap.Int(key, value)
}

// Bool constructs a bool field.
func Bool(key string, value bool) Field {
	return zap.Bool(key, value)
}

// Float64 constructs a float64 field.
func Float64(key string, value float64) Field {
	return zap.Float64(key, value)
}

// Duration constructs a duration field.
func Duration(key string, value time.Duration) Field {
	return zap.Duration(key, value)
}

// Error constructs an error field under the "error" key.
func Error(err error) Field {
	return zap.Error(err)
}
