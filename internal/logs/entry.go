package logs

import (
	"encoding/json"
	"log/slog"
	"strings"

	"featmill/internal/logging"
)

// Entry is one decoded run log record.
type Entry struct {
	Time      string `json:"ts"`
	Level     string `json:"level"`
	Message   string `json:"msg"`
	Component string `json:"component"`
	Job       string `json:"job"`
	Phase     string `json:"phase"`
	Utterance string `json:"utterance"`
	RunID     string `json:"run_id"`
	EventType string `json:"event_type"`
	Error     string `json:"error"`

	// Raw is the undecoded line.
	Raw string `json:"-"`
}

// ParseEntry decodes a JSON log line. Lines that are not JSON objects are
// returned with only Raw and Message set.
func ParseEntry(line string) Entry {
	var e Entry
	if err := json.Unmarshal([]byte(line), &e); err != nil {
		e = Entry{Message: line}
	}
	e.Raw = line
	return e
}

// Filter selects records. Empty RunID and Job match every record.
type Filter struct {
	// RunID matches run ids by prefix.
	RunID string
	Job   string
	// Level is the minimum level; the zero value is info.
	Level slog.Level
}

// Match reports whether e passes the filter.
func (f Filter) Match(e Entry) bool {
	if f.RunID != "" && !strings.HasPrefix(e.RunID, f.RunID) {
		return false
	}
	if f.Job != "" && e.Job != f.Job {
		return false
	}
	return levelOf(e.Level) >= f.Level
}

// ParseLevel maps a level name onto slog; unknown names select info.
func ParseLevel(name string) slog.Level {
	return levelOf(name)
}

func levelOf(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Format renders e on one line in the console handler's header layout.
func Format(e Entry) string {
	if e.Level == "" && e.Time == "" {
		return e.Raw
	}
	var b strings.Builder
	b.WriteString(e.Time)
	b.WriteByte(' ')
	b.WriteString(strings.ToUpper(e.Level))
	if e.Component != "" {
		b.WriteString(" [")
		b.WriteString(e.Component)
		b.WriteByte(']')
	}
	if subject := logging.FormatSubject(e.Job, e.Phase, e.Utterance); subject != "" {
		b.WriteByte(' ')
		b.WriteString(subject)
	}
	b.WriteString(" – ")
	b.WriteString(e.Message)
	if e.Error != "" {
		b.WriteString(" (error: ")
		b.WriteString(e.Error)
		b.WriteByte(')')
	}
	return b.String()
}
