package journal

import (
	"slices"
	"time"
)

// Level is the severity of a trace entry.
type Level string

const (
	Info    Level = "INFO"
	Success Level = "SUCCESS"
	Warning Level = "WARNING"
	Error   Level = "ERROR"
)

// Stage tags the pipeline stage that produced a trace entry.
type Stage string

const (
	Data   Stage = "DATA"
	Signal Stage = "SIGNAL"
	Order  Stage = "ORDER"
	Fill   Stage = "FILL"
)

// Stages lists the pipeline stages in flow order.
var Stages = []Stage{Data, Signal, Order, Fill}

func (s Stage) Valid() bool {
	return slices.Contains(Stages, s)
}

func (l Level) Valid() bool {
	switch l {
	case Info, Success, Warning, Error:
		return true
	}
	return false
}

// LogEntry is one line of the execution trace. Entries are never mutated
// once appended; Timestamp is epoch milliseconds.
type LogEntry struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
	Level     Level  `json:"level"`
	Source    Stage  `json:"source"`
	Message   string `json:"message"`
}

func (e LogEntry) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}
