package log

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type loggerIncomingKey struct{}

// FieldCarrier carries log fields through a context, the DefaultContextLogger
// appends them to every entry logged with that context.
type FieldCarrier struct {
	Fields []zapcore.Field
}

// NewCarrier creates a new logger carrier.
func NewCarrier() *FieldCarrier {
	return &FieldCarrier{}
}

// AppendLoggerFieldToContext appends zap fields to the carrier in ctx, if any.
func AppendLoggerFieldToContext(ctx context.Context, fields ...zap.Field) {
	if c, ok := CarrierFromIncomingContext(ctx); ok {
		c.Fields = append(c.Fields, fields...)
	}
}

// WithLoggerCarrierContext attaches a carrier to the context.
func WithLoggerCarrierContext(ctx context.Context, carrier *FieldCarrier, fields ...zap.Field) context.Context {
	if len(fields) > 0 {
		carrier.Fields = append(carrier.Fields, fields...)
	}
	return context.WithValue(ctx, loggerIncomingKey{}, carrier)
}

// CarrierFromIncomingContext returns the carrier stored in ctx, if any.
func CarrierFromIncomingContext(ctx context.Context) (*FieldCarrier, bool) {
	c, ok := ctx.Value(loggerIncomingKey{}).(*FieldCarrier)
	return c, ok
}
