package obs

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// maxStatementAttr caps the db.statement attribute so large pricing queries
// do not bloat exported spans.
const maxStatementAttr = 300

type querySpanKey struct{}

// PGXTracer is a pgx.QueryTracer that emits a span per statement. Installed
// on the pool's connection config at startup.
type PGXTracer struct{}

func (PGXTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	ctx, span := otel.Tracer("db.pgx").Start(ctx, "pgx.query")

	stmt := strings.TrimSpace(data.SQL)
	attrs := []attribute.KeyValue{
		attribute.String("db.system", "postgresql"),
	}
	if stmt != "" {
		if len(stmt) > maxStatementAttr {
			attrs = append(attrs, attribute.String("db.statement", stmt[:maxStatementAttr]+"..."))
		} else {
			attrs = append(attrs, attribute.String("db.statement", stmt))
		}
		attrs = append(attrs, attribute.String("db.operation", strings.Fields(stmt)[0]))
	}
	span.SetAttributes(attrs...)

	return context.WithValue(ctx, querySpanKey{}, span)
}

func (PGXTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	span, ok := ctx.Value(querySpanKey{}).(trace.Span)
	if !ok {
		return
	}
	if data.Err != nil {
		span.RecordError(data.Err)
	}
	span.End()
}
