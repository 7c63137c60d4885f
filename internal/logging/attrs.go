package logging

import "log/slog"

// Common attribute keys.
const (
	FieldSource    = "source"
	FieldOffset    = "offset"
	FieldError     = "error"
	FieldComponent = "component"
	FieldRequestID = "request_id"
)

func Source(id string) slog.Attr { return slog.String(FieldSource, id) }

func Offset(n int64) slog.Attr { return slog.Int64(FieldOffset, n) }

func RequestID(id string) slog.Attr { return slog.String(FieldRequestID, id) }

func Err(err error) slog.Attr {
	if err == nil {
		return slog.String(FieldError, "<nil>")
	}
	return slog.String(FieldError, err.Error())
}

// NewComponentLogger tags logger with a component attribute. A nil logger
// yields a no-op logger.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(slog.String(FieldComponent, component))
}
