package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Scene evaluation outcomes used as the result label.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// KernelCollector bundles Prometheus metrics for curve and scene evaluation
// and exposes them over HTTP or as a node-exporter textfile.
type KernelCollector struct {
	gatherer prometheus.Gatherer

	Curves      *prometheus.CounterVec
	CurvePoints prometheus.Histogram

	SceneEvaluations *prometheus.CounterVec
	SceneDurations   prometheus.Histogram

	CatalogShapes prometheus.Gauge
}

// NewKernelCollector registers kernel Prometheus metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewKernelCollector(reg prometheus.Registerer) (*KernelCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	curves, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "globe_curves_total",
		Help: "Total number of surface curves computed, labeled by ellipsoid.",
	}, []string{"ellipsoid"}), "globe_curves_total")
	if err != nil {
		return nil, err
	}

	points, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "globe_curve_points",
		Help:    "Number of points per computed curve.",
		Buckets: prometheus.ExponentialBuckets(2, 2, 12),
	}), "globe_curve_points")
	if err != nil {
		return nil, err
	}

	evaluations, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "globe_scene_evaluations_total",
		Help: "Total number of scene evaluations, labeled by result.",
	}, []string{"result"}), "globe_scene_evaluations_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "globe_scene_evaluation_duration_seconds",
		Help:    "Scene evaluation latency in seconds.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}), "globe_scene_evaluation_duration_seconds")
	if err != nil {
		return nil, err
	}

	shapes, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "globe_catalog_shapes",
		Help: "Current number of named ellipsoids in the catalog.",
	}), "globe_catalog_shapes")
	if err != nil {
		return nil, err
	}

	return &KernelCollector{
		gatherer:         gatherer,
		Curves:           curves,
		CurvePoints:      points,
		SceneEvaluations: evaluations,
		SceneDurations:   durations,
		CatalogShapes:    shapes,
	}, nil
}

// ObserveCurve records one computed curve on the named ellipsoid.
func (c *KernelCollector) ObserveCurve(ellipsoid string, points int) {
	if c == nil {
		return
	}
	if ellipsoid == "" {
		ellipsoid = "custom"
	}
	c.Curves.WithLabelValues(ellipsoid).Inc()
	c.CurvePoints.Observe(float64(points))
}

// ObserveScene records one scene evaluation.
func (c *KernelCollector) ObserveScene(elapsed time.Duration, err error) {
	if c == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	c.SceneEvaluations.WithLabelValues(result).Inc()
	c.SceneDurations.Observe(elapsed.Seconds())
}

// SetCatalogShapes drives the catalog gauge; wire it to catalog events.
func (c *KernelCollector) SetCatalogShapes(n int) {
	if c == nil {
		return
	}
	c.CatalogShapes.Set(float64(n))
}

// Handler exposes a ready-to-use /metrics handler.
func (c *KernelCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gathererOrDefault(), promhttp.HandlerOpts{})
}

// WriteTextfile writes the current metrics in the text exposition format,
// suitable for the node exporter textfile collector.
func (c *KernelCollector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.gathererOrDefault()); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}

func (c *KernelCollector) gathererOrDefault() prometheus.Gatherer {
	if c == nil || c.gatherer == nil {
		return prometheus.DefaultGatherer
	}
	return c.gatherer
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
