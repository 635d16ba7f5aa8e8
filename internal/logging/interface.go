package logging

// Re-export types so callers only import this package
import "gmaps-scraper/internal/logging/types"

type LogLevel = types.LogLevel
type LogEntry = types.LogEntry
type LogAdapter = types.LogAdapter
type Logger = types.Logger
type AdapterConfig = types.AdapterConfig

const (
	DebugLevel = types.DebugLevel
	InfoLevel  = types.InfoLevel
	WarnLevel  = types.WarnLevel
	ErrorLevel = types.ErrorLevel
	FatalLevel = types.FatalLevel
)

const (
	FieldRequestID = types.FieldRequestID
	FieldSessionID = types.FieldSessionID
	FieldComponent = types.FieldComponent
)
