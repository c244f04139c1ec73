// Package trace records trader activity spans into the audit log so the
// dashboard can show what each trader did and when.
package trace

import (
	"context"
	"crypto/rand"
	"math/big"
	"strings"

	"tradefloor/internal/storage"
)

const alphanum = "abcdefghijklmnopqrstuvwxyz0123456789"

// idLen is the length of the identifier after the "trace_" prefix.
const idLen = 32

// NewTraceID builds an identifier of the form trace_<tag>0<random>,
// where the "0" terminates the tag so TraderName can recover it.
func NewTraceID(tag string) string {
	tag = strings.ToLower(tag) + "0"
	padLen := idLen - len(tag)

	var b strings.Builder
	b.WriteString("trace_")
	b.WriteString(tag)
	for i := 0; i < padLen; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphanum))))
		if err != nil {
			b.WriteByte('0')
			continue
		}
		b.WriteByte(alphanum[n.Int64()])
	}
	return b.String()
}

// TraderName extracts the tag embedded in a trace ID, or "" when the ID
// does not carry one.
func TraderName(traceID string) string {
	parts := strings.SplitN(traceID, "_", 2)
	if len(parts) != 2 {
		return ""
	}
	name, _, found := strings.Cut(parts[1], "0")
	if !found {
		return ""
	}
	return name
}

// Tracer writes span events into the logs table.
type Tracer struct {
	store *storage.Store
}

func NewTracer(store *storage.Store) *Tracer {
	return &Tracer{store: store}
}

// Span is an in-progress traced operation. End must be called once.
type Span struct {
	tracer *Tracer
	name   string // trader name from the trace ID
	kind   string
	label  string
}

// StartTrace records the start of a full trader session.
func (t *Tracer) StartTrace(ctx context.Context, traceID, name string) *Span {
	return t.start(ctx, traceID, "trace", name)
}

// StartSpan records the start of an operation within a session. kind is
// the event type shown in the log (agent, function, account, ...).
func (t *Tracer) StartSpan(ctx context.Context, traceID, kind, label string) *Span {
	return t.start(ctx, traceID, kind, label)
}

func (t *Tracer) start(ctx context.Context, traceID, kind, label string) *Span {
	s := &Span{
		tracer: t,
		name:   TraderName(traceID),
		kind:   kind,
		label:  label,
	}
	s.write(ctx, "Started", nil)
	return s
}

// End records the end of the span, with the error when one occurred.
func (s *Span) End(ctx context.Context, err error) {
	s.write(ctx, "Ended", err)
}

func (s *Span) write(ctx context.Context, event string, err error) {
	if s.name == "" {
		return
	}
	message := event + " " + s.kind
	if s.label != "" {
		message += " " + s.label
	}
	if err != nil {
		message += " " + err.Error()
	}
	// Trace logging is best effort; a failed write must not fail the span.
	_ = s.tracer.store.WriteLog(ctx, s.name, s.kind, message)
}
