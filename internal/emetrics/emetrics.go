// Package emetrics instruments event lifecycle counters through the
// OpenTelemetry metric API. Without a metric SDK installed the instruments
// are no-ops, so callers can record unconditionally.
package emetrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/hookdeck/chime/internal/models"
)

const meterName = "github.com/hookdeck/chime/internal/emetrics"

type ChimeMetrics interface {
	EventScheduled(ctx context.Context, event *models.Event)
	EventFired(ctx context.Context, event *models.Event)
	EventCancelled(ctx context.Context, event *models.Event)
	NotificationsDispatched(ctx context.Context, count int)
}

type chimeMetricsImpl struct {
	scheduled  metric.Int64Counter
	fired      metric.Int64Counter
	cancelled  metric.Int64Counter
	dispatched metric.Int64Counter
}

var _ ChimeMetrics = (*chimeMetricsImpl)(nil)

var (
	initOnce sync.Once
	instance *chimeMetricsImpl
	initErr  error
)

func New() (ChimeMetrics, error) {
	initOnce.Do(func() {
		instance, initErr = newChimeMetrics(otel.GetMeterProvider().Meter(meterName))
	})
	if initErr != nil {
		return nil, initErr
	}
	return instance, nil
}

func newChimeMetrics(meter metric.Meter) (*chimeMetricsImpl, error) {
	m := &chimeMetricsImpl{}
	var err error

	if m.scheduled, err = meter.Int64Counter("chime.events.scheduled",
		metric.WithDescription("Events scheduled against the event server"),
		metric.WithUnit("{event}"),
	); err != nil {
		return nil, err
	}
	if m.fired, err = meter.Int64Counter("chime.events.fired",
		metric.WithDescription("Events whose countdown expired"),
		metric.WithUnit("{event}"),
	); err != nil {
		return nil, err
	}
	if m.cancelled, err = meter.Int64Counter("chime.events.cancelled",
		metric.WithDescription("Events cancelled before firing"),
		metric.WithUnit("{event}"),
	); err != nil {
		return nil, err
	}
	if m.dispatched, err = meter.Int64Counter("chime.notifications.dispatched",
		metric.WithDescription("Fired events delivered to subscribers"),
		metric.WithUnit("{notification}"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *chimeMetricsImpl) EventScheduled(ctx context.Context, event *models.Event) {
	m.scheduled.Add(ctx, 1)
}

func (m *chimeMetricsImpl) EventFired(ctx context.Context, event *models.Event) {
	m.fired.Add(ctx, 1)
}

func (m *chimeMetricsImpl) EventCancelled(ctx context.Context, event *models.Event) {
	m.cancelled.Add(ctx, 1)
}

func (m *chimeMetricsImpl) NotificationsDispatched(ctx context.Context, count int) {
	m.dispatched.Add(ctx, int64(count))
}
