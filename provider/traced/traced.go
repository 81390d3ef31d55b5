// Package traced wraps a provider.Provider so that every backend round-trip
// is recorded as an OpenTelemetry span.
package traced

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	pr "github.com/unkn0wn-root/metacache/provider"
)

const instrumentation = "github.com/unkn0wn-root/metacache/provider/traced"

type Provider struct {
	inner  pr.Provider
	tracer trace.Tracer
	system string
}

var _ pr.Provider = (*Provider)(nil)

type Config struct {
	// TracerProvider defaults to otel.GetTracerProvider().
	TracerProvider trace.TracerProvider
	// System is recorded as db.system (e.g. "memcached", "redis").
	System string
}

func New(inner pr.Provider, cfg Config) *Provider {
	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Provider{inner: inner, tracer: tp.Tracer(instrumentation), system: cfg.System}
}

func (p *Provider) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("db.operation", op))
	if p.system != "" {
		attrs = append(attrs, attribute.String("db.system", p.system))
	}
	return p.tracer.Start(ctx, "metacache."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...))
}

func end(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (p *Provider) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, span := p.start(ctx, "get", attribute.String("metacache.key", key))
	b, ok, err := p.inner.Get(ctx, key)
	span.SetAttributes(attribute.Bool("metacache.hit", ok))
	end(span, err)
	return b, ok, err
}

func (p *Provider) GetMulti(ctx context.Context, keys []string) (map[string][]byte, error) {
	ctx, span := p.start(ctx, "get_multi", attribute.Int("metacache.keys", len(keys)))
	m, err := p.inner.GetMulti(ctx, keys)
	span.SetAttributes(attribute.Int("metacache.hits", len(m)))
	end(span, err)
	return m, err
}

func (p *Provider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	ctx, span := p.start(ctx, "set",
		attribute.String("metacache.key", key),
		attribute.Int("metacache.size", len(value)),
		attribute.Int64("metacache.ttl_seconds", int64(ttl/time.Second)))
	ok, err := p.inner.Set(ctx, key, value, ttl)
	span.SetAttributes(attribute.Bool("metacache.stored", ok))
	end(span, err)
	return ok, err
}

func (p *Provider) Replace(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	ctx, span := p.start(ctx, "replace",
		attribute.String("metacache.key", key),
		attribute.Int("metacache.size", len(value)))
	ok, err := p.inner.Replace(ctx, key, value, ttl)
	span.SetAttributes(attribute.Bool("metacache.stored", ok))
	end(span, err)
	return ok, err
}

func (p *Provider) Del(ctx context.Context, key string) (bool, error) {
	ctx, span := p.start(ctx, "delete", attribute.String("metacache.key", key))
	deleted, err := p.inner.Del(ctx, key)
	span.SetAttributes(attribute.Bool("metacache.deleted", deleted))
	end(span, err)
	return deleted, err
}

func (p *Provider) Flush(ctx context.Context) error {
	ctx, span := p.start(ctx, "flush")
	err := p.inner.Flush(ctx)
	end(span, err)
	return err
}

func (p *Provider) Close(ctx context.Context) error {
	return p.inner.Close(ctx)
}
