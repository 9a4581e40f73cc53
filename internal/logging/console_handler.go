package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// consoleHandler renders records for an operator watching a run:
//
//	2026-10-18 09:30:00.000 INFO [compose] Job cmp · pass1 – pass finished
//	    - Frames: 400
//
// Info records list curated fields and drop values already shown for the
// same subject. Debug records dump every attribute.
type consoleHandler struct {
	w      io.Writer
	level  *slog.LevelVar
	source bool
	attrs  []kv
	groups []string
	state  *consoleState
}

// consoleState is shared by every handler derived from one logger.
type consoleState struct {
	mu   sync.Mutex
	last map[string]map[string]string
}

// subject identifies what a record is about.
type subject struct {
	component string
	job       string
	phase     string
	utterance string
}

// memoKey groups records whose repeated field values are suppressed.
func (s subject) memoKey() string {
	switch {
	case s.job != "" && s.phase != "":
		return s.job + "/" + s.phase
	case s.job != "":
		return s.job
	default:
		return s.component
	}
}

func newConsoleHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &consoleHandler{
		w:      w,
		level:  lvl,
		source: addSource,
		state:  &consoleState{last: make(map[string]map[string]string)},
	}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	if record.Level < h.level.Level() {
		return nil
	}
	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	kvs := make([]kv, len(h.attrs), len(h.attrs)+record.NumAttrs())
	copy(kvs, h.attrs)
	record.Attrs(func(attr slog.Attr) bool {
		flattenAttr(&kvs, h.groups, attr)
		return true
	})
	kvs = dedupeKVsByKey(kvs)
	subj, fields := splitSubject(kvs)

	message := strings.TrimSpace(record.Message)
	if message == "" {
		message = "(no message)"
	}
	var src *slog.Source
	if h.source {
		src = record.Source()
	}

	var buf bytes.Buffer
	buf.Grow(256 + len(kvs)*32)
	writeHeader(&buf, ts, record.Level, subj, message, src)

	h.state.mu.Lock()
	defer h.state.mu.Unlock()
	if record.Level < slog.LevelInfo {
		writeAllFields(&buf, kvs)
	} else {
		h.writeInfoFields(&buf, subj, record.Level, fields)
	}
	_, err := h.w.Write(buf.Bytes())
	return err
}

// splitSubject pulls the subject out of kvs. The component is removed from
// the returned fields; job, phase and utterance stay and are skipped later.
func splitSubject(kvs []kv) (subject, []kv) {
	var s subject
	fields := make([]kv, 0, len(kvs))
	for _, f := range kvs {
		switch f.key {
		case FieldComponent:
			s.component = attrString(f.value)
			continue
		case FieldJob:
			s.job = attrString(f.value)
		case FieldPhase:
			s.phase = attrString(f.value)
		case FieldUtterance:
			s.utterance = attrString(f.value)
		}
		fields = append(fields, f)
	}
	return s, fields
}

func writeHeader(buf *bytes.Buffer, ts time.Time, level slog.Level, s subject, message string, src *slog.Source) {
	buf.WriteString(formatTimestamp(ts))
	buf.WriteByte(' ')
	buf.WriteString(levelLabel(level))
	if s.component != "" {
		buf.WriteString(" [" + s.component + "]")
	}
	if text := FormatSubject(s.job, s.phase, s.utterance); text != "" {
		buf.WriteByte(' ')
		buf.WriteString(text)
	}
	buf.WriteString(" – ")
	buf.WriteString(message)
	if src != nil {
		buf.WriteString(" [" + filepath.Base(src.File) + ":" + strconv.Itoa(src.Line) + "]")
	}
	buf.WriteByte('\n')
}

func writeAllFields(buf *bytes.Buffer, kvs []kv) {
	for _, f := range kvs {
		if f.key == "" {
			continue
		}
		buf.WriteString("    " + f.key + ": " + formatValue(f.value) + "\n")
	}
}

func (h *consoleHandler) writeInfoFields(buf *bytes.Buffer, s subject, level slog.Level, kvs []kv) {
	verbose := h.level.Level() <= slog.LevelDebug
	fields, hidden := selectInfoFields(kvs, 0, verbose)
	fields = h.state.fresh(s.memoKey(), fields, level)
	for _, f := range fields {
		buf.WriteString("    - " + f.label + ": " + f.value + "\n")
	}
	switch {
	case hidden == 1:
		buf.WriteString("    + 1 more field hidden\n")
	case hidden > 1:
		buf.WriteString("    + " + strconv.Itoa(hidden) + " more fields hidden\n")
	}
}

// fresh drops info fields whose value matches the last one shown under key.
// Warnings and errors always show every field but still update the memo.
func (st *consoleState) fresh(key string, fields []infoField, level slog.Level) []infoField {
	if key == "" || len(fields) == 0 {
		return fields
	}
	last, ok := st.last[key]
	if !ok {
		last = make(map[string]string)
		st.last[key] = last
	}
	out := fields[:0:0]
	for _, f := range fields {
		prev, seen := last[f.label]
		last[f.label] = f.value
		if level <= slog.LevelInfo && seen && prev == f.value {
			continue
		}
		out = append(out, f)
	}
	return out
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := h.clone()
	flattenAttrs(&clone.attrs, h.groups, attrs)
	return clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := h.clone()
	clone.groups = appendPrefix(h.groups, name)
	return clone
}

func (h *consoleHandler) clone() *consoleHandler {
	return &consoleHandler{
		w:      h.w,
		level:  h.level,
		source: h.source,
		attrs:  append([]kv(nil), h.attrs...),
		groups: append([]string(nil), h.groups...),
		state:  h.state,
	}
}

type kv struct {
	key   string
	value slog.Value
}

// dedupeKVsByKey keeps the first position of each key with its last value.
func dedupeKVsByKey(attrs []kv) []kv {
	if len(attrs) < 2 {
		return attrs
	}
	positions := make(map[string]int, len(attrs))
	deduped := make([]kv, 0, len(attrs))
	for _, attr := range attrs {
		if attr.key == "" {
			continue
		}
		if pos, ok := positions[attr.key]; ok {
			deduped[pos].value = attr.value
			continue
		}
		positions[attr.key] = len(deduped)
		deduped = append(deduped, attr)
	}
	return deduped
}

func flattenAttrs(dst *[]kv, prefix []string, attrs []slog.Attr) {
	for _, attr := range attrs {
		flattenAttr(dst, prefix, attr)
	}
}

func flattenAttr(dst *[]kv, prefix []string, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() == slog.KindGroup {
		next := prefix
		if attr.Key != "" {
			next = appendPrefix(prefix, attr.Key)
		}
		flattenAttrs(dst, next, attr.Value.Group())
		return
	}
	key := attr.Key
	if len(prefix) > 0 {
		key = strings.Join(append(append([]string(nil), prefix...), attr.Key), ".")
		key = strings.TrimSuffix(key, ".")
	}
	*dst = append(*dst, kv{key: key, value: attr.Value})
}

func appendPrefix(prefix []string, value string) []string {
	out := make([]string, len(prefix)+1)
	copy(out, prefix)
	out[len(prefix)] = value
	return out
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
