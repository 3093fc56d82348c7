// Package prometheus renders authcore metrics in Prometheus text exposition
// format.
//
// [NewPrometheusExporter] wraps a [authcore.Service] and exposes an
// [http.Handler]. Counters are named authcore_*_total; the single histogram
// is authcore_authorize_latency_seconds. Nothing is registered globally;
// callers mount the Handler.
package prometheus
