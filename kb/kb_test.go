package kb

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/signalsfoundry/globe-kernel/core"
)

func TestNewCatalogHoldsPresets(t *testing.T) {
	c := NewCatalog()
	names := c.Names()
	want := core.PresetNames()
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("Names()[%d] = %q, want %q", i, names[i], want[i])
		}
	}

	e, ok := c.Ellipsoid(core.PresetWgs84)
	if !ok {
		t.Fatalf("Ellipsoid(%q) missing", core.PresetWgs84)
	}
	if got := e.MaximumRadius(); got != core.Wgs84EquatorialRadius {
		t.Fatalf("wgs84 max radius = %v, want %v", got, core.Wgs84EquatorialRadius)
	}
}

func TestAddAndGetShape(t *testing.T) {
	c := NewEmptyCatalog()
	moon := core.MustEllipsoid(1737400, 1737400, 1737400)
	if err := c.Add("moon", moon); err != nil {
		t.Fatalf("Add error: %v", err)
	}
	got, ok := c.Ellipsoid("moon")
	if !ok || got.Radii() != moon.Radii() {
		t.Fatalf("Ellipsoid(moon) = %v, %v; want %v", got, ok, moon)
	}
	if _, ok := c.Ellipsoid("mars"); ok {
		t.Fatalf("Ellipsoid(mars) found, want missing")
	}
}

func TestAddShapeDuplicate(t *testing.T) {
	c := NewCatalog()
	if err := c.Add(core.PresetWgs84, core.UnitSphere()); err == nil {
		t.Fatalf("expected duplicate Add to fail")
	}
	if err := c.Add("", core.UnitSphere()); err == nil {
		t.Fatalf("expected empty name to fail")
	}
}

func TestSetMissingShape(t *testing.T) {
	c := NewEmptyCatalog()
	err := c.Set("mars", core.UnitSphere())
	if !errors.Is(err, core.ErrUnknownEllipsoid) {
		t.Fatalf("Set(mars) error = %v, want ErrUnknownEllipsoid", err)
	}
}

func TestSetShapeAndSubscribe(t *testing.T) {
	c := NewCatalog()

	var events []Event
	unsubscribe := c.Subscribe(func(ev Event) {
		events = append(events, ev)
	})

	flattened := core.MustEllipsoid(1, 1, 0.5)
	if err := c.Set(core.PresetUnitSphere, flattened); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	ev := events[0]
	if ev.Type != EventShapeChanged || ev.Name != core.PresetUnitSphere {
		t.Fatalf("event = %+v, want ShapeChanged for %q", ev, core.PresetUnitSphere)
	}
	if !ev.Previous.IsSphere() || ev.Current.Radii() != flattened.Radii() {
		t.Fatalf("event shapes = %v -> %v", ev.Previous, ev.Current)
	}

	// The catalog serves as a resolver for scenes.
	e, err := core.ResolveShape(core.EllipsoidRef{Preset: core.PresetUnitSphere}, c)
	if err != nil {
		t.Fatalf("ResolveShape error: %v", err)
	}
	if e.MinimumRadius() != 0.5 {
		t.Fatalf("resolved min radius = %v, want 0.5", e.MinimumRadius())
	}

	unsubscribe()
	if err := c.Add("moon", core.UnitSphere()); err != nil {
		t.Fatalf("Add error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events after unsubscribe, want 1", len(events))
	}
}

func TestSubscriberMayReadCatalog(t *testing.T) {
	c := NewCatalog()
	var seen int
	c.Subscribe(func(ev Event) {
		// Would deadlock if callbacks ran under the write lock.
		seen = c.Len()
	})
	if err := c.Add("moon", core.UnitSphere()); err != nil {
		t.Fatalf("Add error: %v", err)
	}
	if seen != 4 {
		t.Fatalf("Len() inside callback = %d, want 4", seen)
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := NewCatalog()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("body-%d", i)
			if err := c.Add(name, core.MustEllipsoid(float64(i+1), 1, 1)); err != nil {
				t.Errorf("Add(%s) error: %v", name, err)
			}
			_ = c.Names()
			_, _ = c.Ellipsoid(core.PresetWgs84)
		}(i)
	}
	wg.Wait()

	if got := c.Len(); got != 11 {
		t.Fatalf("Len() = %d, want 11", got)
	}
}
