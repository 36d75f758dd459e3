package display

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/slatehub/slate-core/internal/framelog"
	"github.com/slatehub/slate-core/internal/infrastructure/logging"
	"github.com/slatehub/slate-core/internal/layout"
	"github.com/slatehub/slate-core/internal/scheduler"
)

// rotationJobKey is the scheduler key for the auto-rotation job.
const rotationJobKey = "rotation"

// Broadcaster fans display events out to WebSocket clients.
// Satisfied by the API hub; nil disables events.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// DeliveryExporter records push outcomes in the time-series store.
// Satisfied by the InfluxDB client; nil disables export.
type DeliveryExporter interface {
	WriteFrameDelivery(layout string, delivered bool, degraded bool, durationMs int64)
}

// Settings is the controller configuration slice that can change on a
// config reload.
type Settings struct {
	Sequence         []string
	RotationInterval time.Duration
	PushTimeout      time.Duration
	QuietHoursStart  string
	QuietHoursEnd    string
}

// Controller is the display state machine. Process-wide single
// instance; all methods are safe for concurrent use.
type Controller struct {
	sched    *scheduler.Scheduler
	transport Transport
	logger   *logging.Logger

	// Optional collaborators.
	frames   framelog.Repository
	events   Broadcaster
	exporter DeliveryExporter

	mu            sync.Mutex
	mode          Mode
	resolver      *layout.Resolver
	settings      Settings
	rotationIndex int
	currentLayout string
	lastFrame     *layout.Frame
	lastPushAt    time.Time
	lastPushErr   string
	lastDegraded  bool

	// Push serialization: at most one in flight, latest pending wins.
	pushing bool
	pending *layout.Frame

	// now is swappable for quiet hours tests.
	now func() time.Time
}

// NewController creates the controller in Manual mode.
func NewController(resolver *layout.Resolver, transport Transport, sched *scheduler.Scheduler, settings Settings, logger *logging.Logger) *Controller {
	return &Controller{
		sched:     sched,
		transport: transport,
		logger:    logger,
		mode:      ModeManual,
		resolver:  resolver,
		settings:  settings,
		now:       time.Now,
	}
}

// SetFrameLog attaches the delivery history repository.
func (c *Controller) SetFrameLog(repo framelog.Repository) {
	c.mu.Lock()
	c.frames = repo
	c.mu.Unlock()
}

// SetBroadcaster attaches the WebSocket event hub.
func (c *Controller) SetBroadcaster(b Broadcaster) {
	c.mu.Lock()
	c.events = b
	c.mu.Unlock()
}

// SetExporter attaches the time-series delivery exporter.
func (c *Controller) SetExporter(e DeliveryExporter) {
	c.mu.Lock()
	c.exporter = e
	c.mu.Unlock()
}

// Status returns a snapshot of the controller state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		Mode:          c.mode,
		CurrentLayout: c.currentLayout,
		LastPushAt:    c.lastPushAt,
		LastPushError: c.lastPushErr,
		Degraded:      c.lastDegraded,
	}
}

// Mode returns the current mode.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// LastFrame returns the most recently pushed frame for previews, or nil.
func (c *Controller) LastFrame() *layout.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastFrame
}

// SetMode switches between Manual and AutoRotate.
//
// Entering AutoRotate (re)starts the rotation job and fires the first
// tick immediately. Entering Manual cancels rotation without touching
// the displayed frame.
func (c *Controller) SetMode(ctx context.Context, mode Mode) error {
	switch mode {
	case ModeManual:
		c.mu.Lock()
		c.mode = ModeManual
		c.mu.Unlock()
		c.sched.RemoveJob(rotationJobKey)
		c.logger.Info("display mode changed", "mode", ModeManual)
		return nil

	case ModeAutoRotate:
		c.mu.Lock()
		if len(c.settings.Sequence) == 0 {
			c.mu.Unlock()
			return ErrNoRotationSequence
		}
		c.mode = ModeAutoRotate
		c.rotationIndex = 0
		interval := c.settings.RotationInterval
		c.mu.Unlock()

		if err := c.sched.AddJob(rotationJobKey, interval, c.rotationTick); err != nil {
			return fmt.Errorf("starting rotation job: %w", err)
		}
		c.logger.Info("display mode changed", "mode", ModeAutoRotate, "interval", interval)

		// First rotation fires now rather than one interval from now.
		// Detached from the caller's lifetime: the triggering request
		// context ends as soon as the handler replies, and the tick's
		// renders and on-demand fetches must not die with it.
		go c.rotationTick(context.WithoutCancel(ctx))
		return nil

	default:
		return ErrUnknownMode
	}
}

// DisplayLayout resolves and pushes the named layout.
//
// Explicit human intent wins over rotation: issuing this while in
// AutoRotate transitions to Manual first.
func (c *Controller) DisplayLayout(ctx context.Context, name string) error {
	c.mu.Lock()
	resolver := c.resolver
	c.mu.Unlock()

	// Validate before touching any state: an unknown name surfaces
	// NotFound and leaves the mode and rotation job alone.
	if _, ok := resolver.Layouts().Get(name); !ok {
		return layout.ErrLayoutNotFound
	}

	c.mu.Lock()
	wasRotating := c.mode == ModeAutoRotate
	c.mode = ModeManual
	c.mu.Unlock()

	if wasRotating {
		c.sched.RemoveJob(rotationJobKey)
		c.logger.Info("manual display request cancelled rotation", "layout", name)
	}

	frame, err := resolver.Resolve(ctx, name)
	if err != nil {
		return err
	}

	c.submitFrame(frame)
	return nil
}

// Clear pushes a blank frame and forgets the current layout.
func (c *Controller) Clear(ctx context.Context) error {
	c.mu.Lock()
	timeout := c.settings.PushTimeout
	c.mu.Unlock()

	pushCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := c.transport.Clear(pushCtx); err != nil {
		return fmt.Errorf("%w: %w", ErrPushFailed, err)
	}

	c.mu.Lock()
	c.currentLayout = ""
	c.lastFrame = nil
	c.lastDegraded = false
	c.mu.Unlock()
	return nil
}

// Reconfigure atomically swaps the resolver and settings after a config
// reload. An in-flight push against the old resolver finishes and its
// result is discarded by the next submission.
func (c *Controller) Reconfigure(resolver *layout.Resolver, settings Settings) {
	c.mu.Lock()
	c.resolver = resolver
	c.settings = settings
	c.rotationIndex = 0
	rotating := c.mode == ModeAutoRotate
	c.mu.Unlock()

	if rotating {
		// Re-add to pick up a changed interval or sequence.
		if err := c.sched.AddJob(rotationJobKey, settings.RotationInterval, c.rotationTick); err != nil {
			c.logger.Error("restarting rotation job after reload", "error", err)
		}
	}
}

// rotationTick advances the rotation index and displays that layout.
// The first tick after entering AutoRotate therefore shows the second
// layout in sequence; a full cycle still visits every layout once.
func (c *Controller) rotationTick(ctx context.Context) {
	c.mu.Lock()
	if c.mode != ModeAutoRotate || len(c.settings.Sequence) == 0 {
		c.mu.Unlock()
		return
	}
	if c.inQuietHours(c.now()) {
		c.mu.Unlock()
		c.logger.Debug("rotation suppressed during quiet hours")
		return
	}
	c.rotationIndex = (c.rotationIndex + 1) % len(c.settings.Sequence)
	name := c.settings.Sequence[c.rotationIndex]
	resolver := c.resolver
	c.mu.Unlock()

	frame, err := resolver.Resolve(ctx, name)
	if err != nil {
		c.logger.Error("rotation render failed", "layout", name, "error", err)
		return
	}
	c.submitFrame(frame)
}

// submitFrame hands a frame to the serialized push path. If a push is
// in flight the frame replaces any pending one (latest wins).
func (c *Controller) submitFrame(frame *layout.Frame) {
	c.mu.Lock()
	if c.pushing {
		c.pending = frame
		c.mu.Unlock()
		return
	}
	c.pushing = true
	c.mu.Unlock()

	go c.pushLoop(frame)
}

// pushLoop pushes frames until no pending frame remains. Runs on its
// own goroutine; only one instance exists at a time.
func (c *Controller) pushLoop(frame *layout.Frame) {
	for {
		c.push(frame)

		c.mu.Lock()
		if c.pending == nil {
			c.pushing = false
			c.mu.Unlock()
			return
		}
		frame = c.pending
		c.pending = nil
		c.mu.Unlock()
	}
}

// push delivers one frame and records the outcome. A failure is logged
// and the frame marked undelivered; the controller carries on.
func (c *Controller) push(frame *layout.Frame) {
	c.mu.Lock()
	timeout := c.settings.PushTimeout
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	err := c.transport.Push(ctx, frame.Image)
	duration := time.Since(start)

	c.mu.Lock()
	c.lastPushAt = time.Now().UTC()
	if err != nil {
		c.lastPushErr = err.Error()
	} else {
		c.lastPushErr = ""
		c.currentLayout = frame.LayoutName
		c.lastFrame = frame
		c.lastDegraded = frame.Degraded
	}
	frames := c.frames
	events := c.events
	exporter := c.exporter
	c.mu.Unlock()

	entry := framelog.Entry{
		ID:         frame.ID,
		Layout:     frame.LayoutName,
		Status:     framelog.StatusDelivered,
		Degraded:   frame.Degraded,
		DurationMS: duration.Milliseconds(),
	}
	if err != nil {
		entry.Status = framelog.StatusUndelivered
		entry.Error = err.Error()
		c.logger.Error("frame push failed",
			"layout", frame.LayoutName,
			"frame_id", frame.ID,
			"error", err,
		)
	} else {
		c.logger.Info("frame pushed",
			"layout", frame.LayoutName,
			"frame_id", frame.ID,
			"degraded", frame.Degraded,
			"duration_ms", duration.Milliseconds(),
		)
	}

	if frames != nil {
		logCtx, logCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if logErr := frames.Create(logCtx, &entry); logErr != nil {
			c.logger.Warn("recording frame delivery failed", "error", logErr)
		}
		logCancel()
	}
	if events != nil {
		events.Broadcast("display.updated", entry)
	}
	if exporter != nil {
		exporter.WriteFrameDelivery(frame.LayoutName, err == nil, frame.Degraded, duration.Milliseconds())
	}
}

// inQuietHours reports whether t falls inside the configured window.
// The window may span midnight. Callers hold c.mu.
func (c *Controller) inQuietHours(t time.Time) bool {
	start, okStart := parseClock(c.settings.QuietHoursStart)
	end, okEnd := parseClock(c.settings.QuietHoursEnd)
	if !okStart || !okEnd {
		return false
	}

	minutes := t.Hour()*60 + t.Minute()
	if start <= end {
		return minutes >= start && minutes < end
	}
	return minutes >= start || minutes < end
}

// parseClock converts "HH:MM" to minutes since midnight.
func parseClock(s string) (int, bool) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}
