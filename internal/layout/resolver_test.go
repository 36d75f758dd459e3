package layout

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/slatehub/slate-core/internal/infrastructure/config"
	"github.com/slatehub/slate-core/internal/infrastructure/logging"
	"github.com/slatehub/slate-core/internal/provider"
	"github.com/slatehub/slate-core/internal/widget"
)

type stubFetcher struct {
	calls   atomic.Int64
	payload provider.Payload
	err     error
}

func (s *stubFetcher) Fetch(_ context.Context) (provider.Payload, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.payload, nil
}

func testLayouts() map[string]config.LayoutConfig {
	return map[string]config.LayoutConfig{
		"morning": {
			Background: 255,
			Widgets: []config.WidgetConfig{
				{Type: "weather", X: 0, Y: 0, Width: 200, Height: 120,
					Provider: "weather", OnDemandRefresh: true},
				{Type: "indoor_sensor", X: 200, Y: 0, Width: 200, Height: 120,
					Provider: "indoor", OnDemandRefresh: true},
			},
		},
	}
}

func newTestResolver(t *testing.T, slots ...*provider.Slot) *Resolver {
	t.Helper()
	return NewResolver(
		NewSet(testLayouts()),
		provider.NewRegistry(slots...),
		widget.NewCatalog(),
		400, 300,
		logging.Default(),
	)
}

func TestResolveUnknownLayout(t *testing.T) {
	resolver := newTestResolver(t)

	_, err := resolver.Resolve(context.Background(), "nonexistent")
	if !errors.Is(err, ErrLayoutNotFound) {
		t.Errorf("expected ErrLayoutNotFound, got %v", err)
	}
}

func TestResolveMixedFreshAndAbsent(t *testing.T) {
	ctx := context.Background()

	weatherFetcher := &stubFetcher{payload: provider.Payload{
		"temperature_c": 8.4, "condition": "Rain",
	}}
	weatherSlot := provider.NewSlot("weather", weatherFetcher, time.Minute)
	if err := weatherSlot.Refresh(ctx); err != nil {
		t.Fatalf("priming weather slot: %v", err)
	}

	// The indoor provider always fails, so its slot stays absent.
	indoorSlot := provider.NewSlot("indoor", &stubFetcher{err: errors.New("no readings")}, time.Minute)

	resolver := newTestResolver(t, weatherSlot, indoorSlot)

	frame, err := resolver.Resolve(ctx, "morning")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	if !frame.Degraded {
		t.Error("expected degraded frame with one absent provider")
	}
	if frame.LayoutName != "morning" {
		t.Errorf("unexpected layout name %q", frame.LayoutName)
	}
	if frame.ID == "" || frame.ProducedAt.IsZero() {
		t.Error("expected frame identity fields populated")
	}

	// The fresh placement must carry real content: more dark pixels
	// than the absent placement's sparse fallback glyph.
	freshInk := countBlack(frame, 0, 0, 200, 120)
	if freshInk == 0 {
		t.Error("expected non-fallback pixels in fresh placement")
	}
}

func countBlack(frame *Frame, x, y, w, h int) int {
	n := 0
	for yy := y; yy < y+h; yy++ {
		for xx := x; xx < x+w; xx++ {
			if frame.Image.GrayAt(xx, yy).Y == 0 {
				n++
			}
		}
	}
	return n
}

func TestOnDemandRefreshBoundedToOneAttempt(t *testing.T) {
	failing := &stubFetcher{err: errors.New("upstream down")}
	slot := provider.NewSlot("weather", failing, time.Minute)
	indoor := provider.NewSlot("indoor", &stubFetcher{err: errors.New("down")}, time.Minute)

	resolver := newTestResolver(t, slot, indoor)

	frame, err := resolver.Resolve(context.Background(), "morning")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if !frame.Degraded {
		t.Error("expected degraded frame")
	}
	if got := failing.calls.Load(); got != 1 {
		t.Errorf("expected exactly 1 on-demand fetch attempt, got %d", got)
	}
}

func TestOnDemandRefreshRecoversStaleData(t *testing.T) {
	fetcher := &stubFetcher{payload: provider.Payload{"temperature_c": 20.0}}
	slot := provider.NewSlot("weather", fetcher, time.Minute)
	indoorFetcher := &stubFetcher{payload: provider.Payload{"temperature_c": 21.0}}
	indoor := provider.NewSlot("indoor", indoorFetcher, time.Minute)

	resolver := newTestResolver(t, slot, indoor)

	frame, err := resolver.Resolve(context.Background(), "morning")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	// Both providers were absent but recover on their on-demand fetch.
	if frame.Degraded {
		t.Error("expected non-degraded frame after successful on-demand refreshes")
	}
	if fetcher.calls.Load() != 1 || indoorFetcher.calls.Load() != 1 {
		t.Errorf("expected one fetch each, got %d and %d",
			fetcher.calls.Load(), indoorFetcher.calls.Load())
	}
}

func TestUnknownWidgetTypeSkipsPlacement(t *testing.T) {
	layouts := map[string]config.LayoutConfig{
		"broken": {
			Background: 255,
			Widgets: []config.WidgetConfig{
				{Type: "holographic", X: 0, Y: 0, Width: 100, Height: 100},
				{Type: "clock", X: 100, Y: 0, Width: 200, Height: 100},
			},
		},
	}
	resolver := NewResolver(
		NewSet(layouts),
		provider.NewRegistry(),
		widget.NewCatalog(),
		400, 300,
		logging.Default(),
	)

	frame, err := resolver.Resolve(context.Background(), "broken")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if !frame.Degraded {
		t.Error("expected degraded frame when a placement is skipped")
	}
	// The clock placement must still have rendered.
	if countBlack(frame, 100, 0, 200, 100) == 0 {
		t.Error("expected surviving placement to render")
	}
}

func TestSetNames(t *testing.T) {
	set := NewSet(map[string]config.LayoutConfig{
		"evening": {}, "morning": {},
	})
	names := set.Names()
	if len(names) != 2 || names[0] != "evening" || names[1] != "morning" {
		t.Errorf("expected sorted names, got %v", names)
	}
}
