package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/emudevtools/emuctl/internal/manager"
	"github.com/emudevtools/emuctl/internal/models"
)

const (
	defaultPollInterval = 5 * time.Second
	fastPollInterval    = 1 * time.Second
	fastPollWindow      = 60 * time.Second
)

// platformState pairs a manager with its snapshot and fast-poll bookkeeping.
type platformState struct {
	mgr  manager.DeviceManager
	snap *Snapshot

	mu         sync.Mutex
	fastUntil  time.Time
	fastTarget string
}

// Coordinator owns the per-platform snapshots, refreshes them in the
// background and funnels mutating lifecycle calls so every mutation is
// followed by a refresh.
type Coordinator struct {
	platforms map[models.Platform]*platformState
	logger    hclog.Logger
	interval  time.Duration
	now       func() time.Time

	// OnUpdate, when set before Run, is called after each successful
	// refresh with the platform that changed.
	OnUpdate func(models.Platform)
}

// CoordinatorOption customizes a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithPollInterval overrides the background refresh interval.
func WithPollInterval(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger hclog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCoordinatorClock injects the time source, for tests.
func WithCoordinatorClock(now func() time.Time) CoordinatorOption {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// WithSnapshotOptions forwards options to every platform snapshot.
func WithSnapshotOptions(opts ...SnapshotOption) CoordinatorOption {
	return func(c *Coordinator) {
		for _, state := range c.platforms {
			for _, opt := range opts {
				opt(state.snap)
			}
		}
	}
}

// NewCoordinator builds a coordinator over the given managers, one snapshot
// per platform.
func NewCoordinator(managers []manager.DeviceManager, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		platforms: make(map[models.Platform]*platformState, len(managers)),
		logger:    hclog.NewNullLogger(),
		interval:  defaultPollInterval,
		now:       time.Now,
	}
	for _, mgr := range managers {
		c.platforms[mgr.Platform()] = &platformState{
			mgr:  mgr,
			snap: NewSnapshot(),
		}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns the cached snapshot for a platform, nil for platforms
// the coordinator does not manage.
func (c *Coordinator) Snapshot(platform models.Platform) *Snapshot {
	state, ok := c.platforms[platform]
	if !ok {
		return nil
	}
	return state.snap
}

// Devices returns the cached devices for a platform.
func (c *Coordinator) Devices(platform models.Platform) []models.Device {
	snap := c.Snapshot(platform)
	if snap == nil {
		return nil
	}
	return snap.Devices()
}

// Refresh re-lists one platform and atomically replaces its snapshot. No
// subprocess work happens while the snapshot lock is held.
func (c *Coordinator) Refresh(ctx context.Context, platform models.Platform) error {
	state, ok := c.platforms[platform]
	if !ok {
		return models.NewDeviceError(models.ErrPlatformNotSupported, string(platform), "", nil)
	}

	runID := uuid.New().String()
	logger := c.logger.With("platform", platform, "refresh_id", runID)

	state.snap.beginRefresh()
	devices, err := state.mgr.ListDevices(ctx)
	if err != nil {
		state.snap.abortRefresh()
		logger.Warn("refresh failed", "error", err)
		return err
	}
	state.snap.Replace(devices)
	logger.Debug("refresh complete", "devices", len(devices))

	c.maybeEndFastPoll(state, devices)

	if c.OnUpdate != nil {
		c.OnUpdate(platform)
	}
	return nil
}

// RefreshAll refreshes every platform concurrently.
func (c *Coordinator) RefreshAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for platform := range c.platforms {
		platform := platform
		g.Go(func() error { return c.Refresh(ctx, platform) })
	}
	return g.Wait()
}

// Run drives the background refresh loops, one per platform, until the
// context is cancelled.
func (c *Coordinator) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for platform := range c.platforms {
		platform := platform
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.runPlatform(ctx, platform)
		}()
	}
	wg.Wait()
}

func (c *Coordinator) runPlatform(ctx context.Context, platform models.Platform) {
	state := c.platforms[platform]
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.pollInterval(state)):
		}
		if err := c.Refresh(ctx, platform); err != nil && ctx.Err() == nil {
			c.logger.Warn("background refresh failed", "platform", platform, "error", err)
		}
	}
}

// pollInterval returns the fast interval while a freshly started device is
// still coming up, the normal interval otherwise.
func (c *Coordinator) pollInterval(state *platformState) time.Duration {
	state.mu.Lock()
	defer state.mu.Unlock()
	if !state.fastUntil.IsZero() && c.now().Before(state.fastUntil) {
		return fastPollInterval
	}
	state.fastUntil = time.Time{}
	state.fastTarget = ""
	return c.interval
}

// armFastPoll shortens the poll interval until the target device reaches
// Running or the window elapses.
func (c *Coordinator) armFastPoll(state *platformState, id string) {
	state.mu.Lock()
	defer state.mu.Unlock()
	state.fastUntil = c.now().Add(fastPollWindow)
	state.fastTarget = id
}

// maybeEndFastPoll restores the normal interval once the awaited device is
// Running.
func (c *Coordinator) maybeEndFastPoll(state *platformState, devices []models.Device) {
	state.mu.Lock()
	defer state.mu.Unlock()
	if state.fastTarget == "" {
		return
	}
	for _, d := range devices {
		if d.ID() == state.fastTarget && d.IsRunning() {
			state.fastUntil = time.Time{}
			state.fastTarget = ""
			return
		}
	}
}

// StartDevice starts a device, invalidates its platform snapshot, arms the
// fast poll window and refreshes.
func (c *Coordinator) StartDevice(ctx context.Context, platform models.Platform, id string) error {
	state, ok := c.platforms[platform]
	if !ok {
		return models.NewDeviceError(models.ErrPlatformNotSupported, string(platform), "", nil)
	}
	if err := state.mgr.StartDevice(ctx, id); err != nil {
		return err
	}
	c.armFastPoll(state, id)
	return c.invalidateAndRefresh(ctx, platform)
}

// StopDevice stops a device and refreshes its platform snapshot.
func (c *Coordinator) StopDevice(ctx context.Context, platform models.Platform, id string) error {
	return c.mutate(ctx, platform, func(mgr manager.DeviceManager) error {
		return mgr.StopDevice(ctx, id)
	})
}

// CreateDevice creates a device and refreshes its platform snapshot.
func (c *Coordinator) CreateDevice(ctx context.Context, platform models.Platform, cfg models.DeviceConfig) error {
	return c.mutate(ctx, platform, func(mgr manager.DeviceManager) error {
		return mgr.CreateDevice(ctx, cfg)
	})
}

// DeleteDevice deletes a device and refreshes its platform snapshot.
func (c *Coordinator) DeleteDevice(ctx context.Context, platform models.Platform, id string) error {
	return c.mutate(ctx, platform, func(mgr manager.DeviceManager) error {
		return mgr.DeleteDevice(ctx, id)
	})
}

// WipeDevice wipes a device and refreshes its platform snapshot.
func (c *Coordinator) WipeDevice(ctx context.Context, platform models.Platform, id string) error {
	return c.mutate(ctx, platform, func(mgr manager.DeviceManager) error {
		return mgr.WipeDevice(ctx, id)
	})
}

func (c *Coordinator) mutate(ctx context.Context, platform models.Platform, op func(manager.DeviceManager) error) error {
	state, ok := c.platforms[platform]
	if !ok {
		return models.NewDeviceError(models.ErrPlatformNotSupported, string(platform), "", nil)
	}
	if err := op(state.mgr); err != nil {
		return err
	}
	return c.invalidateAndRefresh(ctx, platform)
}

func (c *Coordinator) invalidateAndRefresh(ctx context.Context, platform models.Platform) error {
	c.platforms[platform].snap.Invalidate()
	if err := c.Refresh(ctx, platform); err != nil {
		// The mutation itself succeeded; a failed follow-up refresh only
		// delays the snapshot update.
		c.logger.Warn("post-mutation refresh failed", "platform", platform, "error", err)
	}
	return nil
}
