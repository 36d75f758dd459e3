package layout

import (
	"context"
	"image"
	"image/color"
	"time"

	"github.com/google/uuid"

	"github.com/slatehub/slate-core/internal/infrastructure/logging"
	"github.com/slatehub/slate-core/internal/provider"
	"github.com/slatehub/slate-core/internal/widget"
)

// onDemandTimeout bounds the single synchronous refresh a placement may
// trigger during a render. A slow provider delays one frame, not the
// whole hub.
const onDemandTimeout = 20 * time.Second

// Resolver renders layout definitions into frames.
type Resolver struct {
	layouts  *Set
	registry *provider.Registry
	catalog  *widget.Catalog
	width    int
	height   int
	logger   *logging.Logger
}

// NewResolver creates a resolver for the given canvas dimensions.
func NewResolver(layouts *Set, registry *provider.Registry, catalog *widget.Catalog, width, height int, logger *logging.Logger) *Resolver {
	return &Resolver{
		layouts:  layouts,
		registry: registry,
		catalog:  catalog,
		width:    width,
		height:   height,
		logger:   logger,
	}
}

// Layouts returns the resolver's layout set.
func (r *Resolver) Layouts() *Set {
	return r.layouts
}

// Resolve renders the named layout into a frame.
//
// Placement failures never fail the frame: a missing provider, stale
// data after one on-demand refresh attempt, an unknown widget type, or
// a panicking renderer each degrade the frame and move on. Only an
// unknown layout name is a hard error.
func (r *Resolver) Resolve(ctx context.Context, name string) (*Frame, error) {
	def, ok := r.layouts.Get(name)
	if !ok {
		return nil, ErrLayoutNotFound
	}

	canvas := image.NewGray(image.Rect(0, 0, r.width, r.height))
	for i := range canvas.Pix {
		canvas.Pix[i] = def.Background
	}

	degraded := false
	for _, placement := range def.Placements {
		if r.renderPlacement(ctx, canvas, placement) {
			degraded = true
		}
	}

	return &Frame{
		ID:         "frm-" + uuid.NewString()[:8],
		LayoutName: name,
		Image:      canvas,
		ProducedAt: time.Now().UTC(),
		Degraded:   degraded,
	}, nil
}

// renderPlacement draws one placement and reports whether it degraded
// the frame.
func (r *Resolver) renderPlacement(ctx context.Context, canvas *image.Gray, p Placement) (degraded bool) {
	data, dataDegraded := r.gatherData(ctx, p)
	degraded = dataDegraded

	usedFallback, err := r.safeRender(p, canvas, data)
	if err != nil {
		// Unknown widget type or renderer panic: the placement is
		// skipped, the frame continues.
		r.logger.Warn("placement skipped",
			"widget", p.Type,
			"provider", p.Provider,
			"error", err,
		)
		return true
	}
	if usedFallback {
		degraded = true
	}
	return degraded
}

// gatherData reads the placement's bound provider, refreshing once on
// demand when the data is stale or absent. A second miss is accepted
// as-is.
func (r *Resolver) gatherData(ctx context.Context, p Placement) (provider.Payload, bool) {
	if p.Provider == "" {
		return nil, false
	}

	data, staleness, err := r.registry.Read(p.Provider)
	if err != nil {
		r.logger.Warn("placement bound to unknown provider",
			"widget", p.Type,
			"provider", p.Provider,
		)
		return nil, true
	}

	if staleness != provider.StalenessFresh && p.OnDemandRefresh {
		refreshCtx, cancel := context.WithTimeout(ctx, onDemandTimeout)
		if refreshErr := r.registry.Refresh(refreshCtx, p.Provider); refreshErr != nil {
			r.logger.Warn("on-demand refresh failed",
				"provider", p.Provider,
				"error", refreshErr,
			)
		}
		cancel()
		data, staleness, _ = r.registry.Read(p.Provider)
	}

	return data, staleness != provider.StalenessFresh
}

// safeRender invokes the widget renderer with panic recovery. A panic
// in one placement's renderer must not take down the frame.
func (r *Resolver) safeRender(p Placement, canvas *image.Gray, data provider.Payload) (usedFallback bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("widget renderer panic recovered",
				"widget", p.Type,
				"panic", rec,
			)
			drawPanicFallback(canvas, p.Region)
			usedFallback = true
			err = nil
		}
	}()

	return r.catalog.Render(p.Type, canvas, p.Region, data, p.Options)
}

// drawPanicFallback blanks the placement region after a renderer panic,
// which may have left partial pixels behind.
func drawPanicFallback(canvas *image.Gray, region widget.Region) {
	rect := image.Rect(region.X, region.Y, region.X+region.Width, region.Y+region.Height).
		Intersect(canvas.Bounds())
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			canvas.SetGray(x, y, color.Gray{Y: 0xFF})
		}
	}
}
