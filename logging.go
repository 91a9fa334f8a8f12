package profiles

// Stages reported in LogEvent.Stage.
const (
	StageValidate = "validate"
	StageDiscover = "discover"
	StageInfer    = "infer"
	StageExclude  = "exclude"
	StageActivity = "activity"
)

// LogEvent describes one diagnostic emitted during bootstrap.
type LogEvent struct {
	Stage   string
	Message string
	Fields  map[string]any
	Err     error
}

// Logger records bootstrap diagnostics. Implementations must not influence
// resolution.
type Logger interface {
	Log(LogEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(LogEvent)

// Log implements Logger.
func (f LoggerFunc) Log(event LogEvent) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) Log(LogEvent) {}
