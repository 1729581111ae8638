package logger

import "log/slog"

// StyledLogger wraps slog with theme-aware formatting for the bits of
// output humans actually read. Components hold this rather than a bare
// *slog.Logger so terminal and plain output stay swappable.
type StyledLogger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	InfoWithCount(msg string, count int, args ...any)
	InfoWithAgent(msg string, agentID string, args ...any)
	InfoWithModel(msg string, model string, args ...any)
	WarnWithAgent(msg string, agentID string, args ...any)
	ErrorWithAgent(msg string, agentID string, args ...any)

	GetUnderlying() *slog.Logger
	With(args ...any) StyledLogger
	WithRequestID(requestID string) StyledLogger
}

func toInterfaceSlice(strs []string) []interface{} {
	result := make([]interface{}, len(strs))
	for i, s := range strs {
		result[i] = s
	}
	return result
}
