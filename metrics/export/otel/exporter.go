package otel

import (
	"context"
	"errors"
	"fmt"

	"github.com/debtflow/authcore"
	"github.com/debtflow/authcore/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// MetricsSource is satisfied by *authcore.Service.
type MetricsSource interface {
	internaldefs.AuditSource
	MetricsSnapshot() authcore.MetricsSnapshot
}

// observeFunc reports one instrument from a snapshot taken once per collection.
type observeFunc func(metric.Observer, authcore.MetricsSnapshot)

// OTelExporter publishes Service metrics as observable instruments read on
// every collection cycle.
type OTelExporter struct {
	source       MetricsSource
	registration metric.Registration
	observers    []observeFunc
	instruments  []metric.Observable
}

// NewOTelExporter registers instruments on meter reading from svc.
func NewOTelExporter(meter metric.Meter, svc *authcore.Service) (*OTelExporter, error) {
	if svc == nil {
		return nil, ErrNilSource
	}
	return NewOTelExporterFromSource(meter, svc)
}

// NewOTelExporterFromSource registers instruments reading from source.
func NewOTelExporterFromSource(meter metric.Meter, source MetricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{source: source}
	for _, def := range internaldefs.CounterDefs {
		if err := e.addCounter(meter, def); err != nil {
			return nil, err
		}
	}
	for _, def := range internaldefs.HistogramDefs {
		if err := e.addHistogram(meter, def); err != nil {
			return nil, err
		}
	}
	for _, def := range internaldefs.AuditDefs {
		if err := e.addAudit(meter, def); err != nil {
			return nil, err
		}
	}

	registration, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		snapshot := e.source.MetricsSnapshot()
		for _, observe := range e.observers {
			observe(o, snapshot)
		}
		return nil
	}, e.instruments...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	e.registration = registration
	return e, nil
}

func (e *OTelExporter) addCounter(meter metric.Meter, def internaldefs.CounterDef) error {
	ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
	if err != nil {
		return fmt.Errorf("create observable counter %s: %w", def.Name, err)
	}
	e.instruments = append(e.instruments, ins)
	e.observers = append(e.observers, func(o metric.Observer, s authcore.MetricsSnapshot) {
		o.ObserveInt64(ins, int64(s.Counters[def.ID]))
	})
	return nil
}

// addHistogram exports one cumulative gauge per bucket plus a count gauge,
// since snapshots carry bucket counts but no sum.
func (e *OTelExporter) addHistogram(meter metric.Meter, def internaldefs.HistogramDef) error {
	var buckets [internaldefs.BucketCount]metric.Int64ObservableGauge
	for i, suffix := range internaldefs.HistogramBoundSuffix {
		name := def.Name + "_bucket_le_" + suffix
		ins, err := meter.Int64ObservableGauge(name, metric.WithDescription("Cumulative histogram bucket count."))
		if err != nil {
			return fmt.Errorf("create histogram bucket gauge %s: %w", name, err)
		}
		buckets[i] = ins
		e.instruments = append(e.instruments, ins)
	}

	countName := def.Name + "_count"
	count, err := meter.Int64ObservableGauge(countName, metric.WithDescription("Histogram total sample count."))
	if err != nil {
		return fmt.Errorf("create histogram count gauge %s: %w", countName, err)
	}
	e.instruments = append(e.instruments, count)

	e.observers = append(e.observers, func(o metric.Observer, s authcore.MetricsSnapshot) {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(s.Histograms[def.ID]))
		for i, ins := range buckets {
			o.ObserveInt64(ins, int64(cumulative[i]))
		}
		o.ObserveInt64(count, int64(cumulative[len(cumulative)-1]))
	})
	return nil
}

func (e *OTelExporter) addAudit(meter metric.Meter, def internaldefs.AuditDef) error {
	ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
	if err != nil {
		return fmt.Errorf("create observable counter %s: %w", def.Name, err)
	}
	e.instruments = append(e.instruments, ins)
	e.observers = append(e.observers, func(o metric.Observer, _ authcore.MetricsSnapshot) {
		o.ObserveInt64(ins, int64(def.Read(e.source)))
	})
	return nil
}

// Close unregisters the collection callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
