package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/signalsfoundry/globe-kernel/core"
	"github.com/signalsfoundry/globe-kernel/internal/logging"
	"github.com/signalsfoundry/globe-kernel/internal/observability"
	"github.com/signalsfoundry/globe-kernel/kb"
	"github.com/signalsfoundry/globe-kernel/model"
	"github.com/signalsfoundry/globe-kernel/timectrl"
)

// customShape labels metrics for scenes that give explicit radii.
const customShape = "custom"

// sceneShapePrefix names catalog entries for shapes a scene defines itself.
const sceneShapePrefix = "scene:"

// defaultScene is the curve demo: an arc across a flattened globe.
func defaultScene() *core.Scene {
	return &core.Scene{
		Shape: core.EllipsoidRef{Preset: core.PresetScaledWgs84},
		Curves: []core.CurveSpec{{
			ID:          "demo",
			From:        model.Geodetic2DFromDegrees(40, 40),
			To:          model.Geodetic2DFromDegrees(120, -30),
			Granularity: mgl64.DegToRad(core.DefaultGranularityDeg),
		}},
	}
}

// TrackResult is a satellite ground track sampled by the time controller.
type TrackResult struct {
	ID     string             `json:"id"`
	Start  time.Time          `json:"start"`
	Step   string             `json:"step"`
	Points []model.Geodetic3D `json:"points"`
}

// report is one evaluation as written to stdout.
type report struct {
	Scene  string            `json:"scene"`
	At     time.Time         `json:"at"`
	Result *core.SceneResult `json:"result"`
	Tracks []TrackResult     `json:"tracks,omitempty"`
}

type evaluator struct {
	cfg       Config
	catalog   *kb.Catalog
	collector *observability.KernelCollector
	log       logging.Logger

	outMu sync.Mutex
	out   io.Writer
}

// evaluateOnce loads, evaluates and prints the scene.
func (ev *evaluator) evaluateOnce(ctx context.Context) error {
	ctx, log := logging.WithRunLogger(ctx, ev.log)
	ctx, span := observability.Tracer().Start(ctx, "scene.evaluate")
	defer span.End()

	start := time.Now()
	rep, err := ev.evaluate(ctx, log)
	ev.collector.ObserveScene(time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetAttributes(
		attribute.String("scene", rep.Scene),
		attribute.Int("curves", len(rep.Result.Curves)),
		attribute.Int("normals", len(rep.Result.Normals)),
		attribute.Int("satellites", len(rep.Result.Satellites)),
		attribute.Int("points", rep.Result.PointCount()),
	)

	if ev.cfg.MetricsTextfile != "" {
		if err := ev.collector.WriteTextfile(ev.cfg.MetricsTextfile); err != nil {
			log.Warn(ctx, "metrics textfile not written", logging.Err(err))
		}
	}

	ev.outMu.Lock()
	defer ev.outMu.Unlock()
	return render(ev.out, ev.cfg.Format, rep)
}

func (ev *evaluator) evaluate(ctx context.Context, log logging.Logger) (*report, error) {
	scene, name, err := ev.loadScene()
	if err != nil {
		return nil, err
	}
	if ev.cfg.SemiMinor > 0 {
		c := ev.cfg.SemiMinor
		scene.Shape.SemiMinorAxis = &c
	}

	label := scene.Shape.Preset
	if scene.Shape.Radii != nil {
		label = customShape
	}
	if err := ev.registerSceneShape(ctx, log, scene, name); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	res, err := core.EvaluateScene(scene, ev.catalog, ev.cfg.At)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	for _, c := range res.Curves {
		ev.collector.ObserveCurve(label, len(c.Points))
	}

	tracks, err := groundTracks(res.Shape(), scene.Satellites, ev.cfg.At, ev.cfg.TrackDuration, ev.cfg.TrackStep)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	log.Info(ctx, "scene evaluated",
		logging.String("scene", name),
		logging.String("ellipsoid", res.Shape().String()),
		logging.Int("curves", len(res.Curves)),
		logging.Int("points", res.PointCount()),
		logging.Int("normals", len(res.Normals)),
		logging.Int("satellites", len(res.Satellites)),
	)

	return &report{Scene: name, At: ev.cfg.At, Result: res, Tracks: tracks}, nil
}

// registerSceneShape puts a shape given by explicit radii or a semi-minor
// override into the catalog under a name derived from the scene, then points
// the scene at that entry. An unchanged shape is left alone on re-evaluation.
func (ev *evaluator) registerSceneShape(ctx context.Context, log logging.Logger, scene *core.Scene, name string) error {
	ref := scene.Shape
	if ref.Radii == nil && ref.SemiMinorAxis == nil {
		return nil
	}
	e, err := core.ResolveShape(ref, ev.catalog)
	if err != nil {
		return err
	}

	key := sceneShapePrefix + filepath.Base(name)
	prev, ok := ev.catalog.Ellipsoid(key)
	switch {
	case !ok:
		err = ev.catalog.Add(key, e)
	case prev.Radii() != e.Radii():
		err = ev.catalog.Set(key, e)
	}
	if err != nil {
		return err
	}
	log.Debug(ctx, "scene shape registered", logging.String("shape", key), logging.String("radii", e.String()))

	scene.Shape = core.EllipsoidRef{Preset: key}
	return nil
}

func (ev *evaluator) loadScene() (*core.Scene, string, error) {
	if ev.cfg.ScenePath == "" {
		return defaultScene(), "built-in", nil
	}
	scene, err := core.LoadSceneFile(ev.cfg.ScenePath)
	if err != nil {
		return nil, "", err
	}
	return scene, ev.cfg.ScenePath, nil
}

// groundTracks steps a time controller across [at, at+duration] and records
// every satellite's sub-point on each tick.
func groundTracks(e core.Ellipsoid, sats []core.SatelliteSpec, at time.Time, duration, step time.Duration) ([]TrackResult, error) {
	if duration <= 0 || len(sats) == 0 {
		return nil, nil
	}

	sources := make([]*core.OrbitalTrack, len(sats))
	tracks := make([]TrackResult, len(sats))
	for i, s := range sats {
		src, err := core.NewOrbitalTrack(s.Line1, s.Line2)
		if err != nil {
			return nil, fmt.Errorf("satellite %q: %w", s.ID, err)
		}
		first, err := core.GroundTrack(e, src, at, step, 1)
		if err != nil {
			return nil, fmt.Errorf("satellite %q: %w", s.ID, err)
		}
		sources[i] = src
		tracks[i] = TrackResult{ID: s.ID, Start: at, Step: step.String(), Points: first}
	}

	var firstErr error
	tc := timectrl.NewTimeController(at, step, timectrl.Accelerated)
	tc.AddListener(func(now time.Time) {
		if firstErr != nil {
			return
		}
		for i, src := range sources {
			sub, err := core.SubPoint(e, src, now)
			if err != nil {
				firstErr = fmt.Errorf("satellite %q at %s: %w", tracks[i].ID, now.Format(time.RFC3339), err)
				return
			}
			tracks[i].Points = append(tracks[i].Points, sub)
		}
	})
	<-tc.Start(duration)

	if firstErr != nil {
		return nil, firstErr
	}
	return tracks, nil
}
