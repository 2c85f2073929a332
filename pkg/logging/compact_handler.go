package logging

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ComponentKey is the attribute New tags loggers with
const ComponentKey = "component"

// idKeys hold uuids; the first eight characters are enough to tell runs apart on a console
var idKeys = map[string]bool{"requestID": true, "run": true, "runId": true}

const shortID = 8

// CompactHandler writes one line per record for console use:
//
//	[INFO]  15:04:05 engine: Diff complete | run=1f0c9a2b distance=5 duration=1.2ms
//
// The component attribute becomes the prefix of the message instead of a key.
// Attributes bound with WithAttrs are rendered once, when they are bound.
type CompactHandler struct {
	level     slog.Leveler
	mu        *sync.Mutex
	out       io.Writer
	component string
	group     string // dotted prefix from WithGroup
	bound     []byte // pre-rendered " key=value" pairs
}

// NewCompactHandler creates a new compact console handler
func NewCompactHandler(w io.Writer, opts *slog.HandlerOptions) *CompactHandler {
	h := &CompactHandler{level: slog.LevelInfo, mu: &sync.Mutex{}, out: w}
	if opts != nil && opts.Level != nil {
		h.level = opts.Level
	}
	return h
}

func (h *CompactHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *CompactHandler) Handle(_ context.Context, r slog.Record) error {
	component := h.component
	var attrs []byte
	r.Attrs(func(a slog.Attr) bool {
		if h.group == "" && a.Key == ComponentKey {
			component = a.Value.String()
			return true
		}
		attrs = appendAttr(attrs, h.group, a)
		return true
	})

	buf := make([]byte, 0, 128+len(h.bound)+len(attrs))
	buf = append(buf, levelLabel(r.Level)...)
	if !r.Time.IsZero() {
		buf = r.Time.AppendFormat(buf, time.TimeOnly)
		buf = append(buf, ' ')
	}
	if component != "" {
		buf = append(buf, component...)
		buf = append(buf, ": "...)
	}
	buf = append(buf, r.Message...)
	if len(h.bound) > 0 || len(attrs) > 0 {
		buf = append(buf, " |"...)
		buf = append(buf, h.bound...)
		buf = append(buf, attrs...)
	}
	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(buf)
	return err
}

// levelLabel pads every label to the same width
func levelLabel(level slog.Level) string {
	switch {
	case level < slog.LevelDebug:
		return "[TRACE] "
	case level < slog.LevelInfo:
		return "[DEBUG] "
	case level < slog.LevelWarn:
		return "[INFO]  "
	case level < slog.LevelError:
		return "[WARN]  "
	default:
		return "[ERROR] "
	}
}

// appendAttr renders " key=value", flattening groups into dotted keys
func appendAttr(buf []byte, prefix string, a slog.Attr) []byte {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return buf
	}

	key := a.Key
	if prefix != "" && key != "" {
		key = prefix + "." + key
	} else if key == "" {
		key = prefix
	}

	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			buf = appendAttr(buf, key, ga)
		}
		return buf
	}

	buf = append(buf, ' ')
	buf = append(buf, key...)
	buf = append(buf, '=')
	return appendValue(buf, a.Key, a.Value)
}

func appendValue(buf []byte, key string, v slog.Value) []byte {
	switch v.Kind() {
	case slog.KindString:
		s := v.String()
		if idKeys[key] && len(s) > shortID {
			s = s[:shortID]
		}
		return appendText(buf, s)
	case slog.KindFloat64:
		// scores and thresholds; four significant digits read well
		return strconv.AppendFloat(buf, v.Float64(), 'g', 4, 64)
	case slog.KindDuration:
		return append(buf, roundDuration(v.Duration()).String()...)
	case slog.KindTime:
		return v.Time().AppendFormat(buf, time.RFC3339)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return strconv.AppendQuote(buf, err.Error())
		}
		return appendText(buf, v.String())
	default:
		return append(buf, v.String()...)
	}
}

// appendText quotes values a reader could not otherwise split on spaces
func appendText(buf []byte, s string) []byte {
	if s == "" || strings.ContainsAny(s, " \t\n\"=|") {
		return strconv.AppendQuote(buf, s)
	}
	return append(buf, s...)
}

func roundDuration(d time.Duration) time.Duration {
	switch {
	case d >= time.Second:
		return d.Round(time.Millisecond)
	case d >= time.Millisecond:
		return d.Round(100 * time.Microsecond)
	default:
		return d.Round(time.Microsecond)
	}
}

func (h *CompactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.bound = slices.Clip(h.bound)
	for _, a := range attrs {
		if h.group == "" && a.Key == ComponentKey {
			c.component = a.Value.String()
			continue
		}
		c.bound = appendAttr(c.bound, h.group, a)
	}
	return &c
}

func (h *CompactHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	if c.group != "" {
		c.group += "." + name
	} else {
		c.group = name
	}
	return &c
}
