package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/emudevtools/emuctl/internal/manager"
	"github.com/emudevtools/emuctl/internal/models"
)

// fakeManager is a scripted DeviceManager for coordinator tests.
type fakeManager struct {
	platform models.Platform

	mu      sync.Mutex
	devices []models.Device
	listErr error
	lists   int
	startErr error
}

func (f *fakeManager) Platform() models.Platform { return f.platform }

func (f *fakeManager) ListDevices(ctx context.Context) ([]models.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.Device, len(f.devices))
	copy(out, f.devices)
	return out, nil
}

func (f *fakeManager) setDevices(devices []models.Device) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.devices = devices
}

func (f *fakeManager) listCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists
}

func (f *fakeManager) StartDevice(ctx context.Context, id string) error { return f.startErr }
func (f *fakeManager) StopDevice(ctx context.Context, id string) error  { return nil }
func (f *fakeManager) CreateDevice(ctx context.Context, cfg models.DeviceConfig) error {
	return nil
}
func (f *fakeManager) DeleteDevice(ctx context.Context, id string) error { return nil }
func (f *fakeManager) WipeDevice(ctx context.Context, id string) error   { return nil }
func (f *fakeManager) GetDeviceDetails(ctx context.Context, id string) (*models.DeviceDetails, error) {
	return nil, models.NewDeviceError(models.ErrNotFound, id, "", nil)
}
func (f *fakeManager) IsAvailable(ctx context.Context) bool { return true }

func androidFake(devices ...models.Device) *fakeManager {
	return &fakeManager{platform: models.PlatformAndroid, devices: devices}
}

func TestRefreshPopulatesSnapshot(t *testing.T) {
	t.Parallel()

	mgr := androidFake(models.AndroidDevice{Name: "Pixel_7_API_34", State: models.StatusStopped})
	c := NewCoordinator([]manager.DeviceManager{mgr})

	if err := c.Refresh(context.Background(), models.PlatformAndroid); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	snap := c.Snapshot(models.PlatformAndroid)
	if snap.IsStale() {
		t.Error("snapshot should be fresh after refresh")
	}
	devices := snap.Devices()
	if len(devices) != 1 || devices[0].ID() != "Pixel_7_API_34" {
		t.Errorf("unexpected devices %v", devices)
	}
}

func TestRefreshFailureKeepsPreviousSnapshot(t *testing.T) {
	t.Parallel()

	mgr := androidFake(models.AndroidDevice{Name: "Pixel_7_API_34", State: models.StatusStopped})
	c := NewCoordinator([]manager.DeviceManager{mgr})

	if err := c.Refresh(context.Background(), models.PlatformAndroid); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	mgr.mu.Lock()
	mgr.listErr = errors.New("adb exploded")
	mgr.mu.Unlock()

	if err := c.Refresh(context.Background(), models.PlatformAndroid); err == nil {
		t.Fatal("expected refresh error")
	}

	snap := c.Snapshot(models.PlatformAndroid)
	if snap.IsLoading() {
		t.Error("failed refresh must clear the loading flag")
	}
	if len(snap.Devices()) != 1 {
		t.Error("failed refresh must keep the previous device list")
	}
}

func TestRefreshAllCoversEveryPlatform(t *testing.T) {
	t.Parallel()

	android := androidFake()
	ios := &fakeManager{platform: models.PlatformIOS}
	c := NewCoordinator([]manager.DeviceManager{android, ios})

	if err := c.RefreshAll(context.Background()); err != nil {
		t.Fatalf("RefreshAll: %v", err)
	}
	if android.listCount() != 1 || ios.listCount() != 1 {
		t.Errorf("expected one listing per platform, got android=%d ios=%d",
			android.listCount(), ios.listCount())
	}
}

func TestMutationInvalidatesAndRefreshes(t *testing.T) {
	t.Parallel()

	mgr := androidFake()
	c := NewCoordinator([]manager.DeviceManager{mgr})

	if err := c.Refresh(context.Background(), models.PlatformAndroid); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	mgr.setDevices([]models.Device{models.AndroidDevice{Name: "New_AVD", State: models.StatusStopped}})
	if err := c.CreateDevice(context.Background(), models.PlatformAndroid, models.DeviceConfig{Name: "New AVD"}); err != nil {
		t.Fatalf("CreateDevice: %v", err)
	}

	devices := c.Devices(models.PlatformAndroid)
	if len(devices) != 1 || devices[0].ID() != "New_AVD" {
		t.Errorf("mutation should refresh the snapshot, got %v", devices)
	}
}

func TestMutationErrorSkipsRefresh(t *testing.T) {
	t.Parallel()

	mgr := androidFake()
	mgr.startErr = models.NewDeviceError(models.ErrStartFailed, "X", "boom", nil)
	c := NewCoordinator([]manager.DeviceManager{mgr})

	err := c.StartDevice(context.Background(), models.PlatformAndroid, "X")
	if !models.IsKind(err, models.ErrStartFailed) {
		t.Fatalf("expected StartFailed, got %v", err)
	}
	if mgr.listCount() != 0 {
		t.Error("failed mutation must not trigger a refresh")
	}
}

func TestUnknownPlatformRejected(t *testing.T) {
	t.Parallel()

	c := NewCoordinator([]manager.DeviceManager{androidFake()})

	err := c.Refresh(context.Background(), models.PlatformIOS)
	if !models.IsKind(err, models.ErrPlatformNotSupported) {
		t.Errorf("expected PlatformNotSupported, got %v", err)
	}
	if c.Snapshot(models.PlatformIOS) != nil {
		t.Error("unmanaged platform should have no snapshot")
	}
}

func TestStartDeviceArmsFastPoll(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	mgr := androidFake(models.AndroidDevice{Name: "Pixel_7_API_34", State: models.StatusStarting})
	c := NewCoordinator([]manager.DeviceManager{mgr}, WithCoordinatorClock(clock.Now))

	if err := c.StartDevice(context.Background(), models.PlatformAndroid, "Pixel_7_API_34"); err != nil {
		t.Fatalf("StartDevice: %v", err)
	}

	state := c.platforms[models.PlatformAndroid]
	if got := c.pollInterval(state); got != fastPollInterval {
		t.Errorf("poll interval after start = %v, want %v", got, fastPollInterval)
	}

	// Once the device reports Running the next refresh restores the normal
	// interval.
	mgr.setDevices([]models.Device{models.AndroidDevice{Name: "Pixel_7_API_34", State: models.StatusRunning}})
	if err := c.Refresh(context.Background(), models.PlatformAndroid); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := c.pollInterval(state); got != defaultPollInterval {
		t.Errorf("poll interval after Running = %v, want %v", got, defaultPollInterval)
	}
}

func TestFastPollWindowExpires(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	mgr := androidFake(models.AndroidDevice{Name: "Pixel_7_API_34", State: models.StatusStarting})
	c := NewCoordinator([]manager.DeviceManager{mgr}, WithCoordinatorClock(clock.Now))

	if err := c.StartDevice(context.Background(), models.PlatformAndroid, "Pixel_7_API_34"); err != nil {
		t.Fatalf("StartDevice: %v", err)
	}

	clock.Advance(fastPollWindow + time.Second)
	state := c.platforms[models.PlatformAndroid]
	if got := c.pollInterval(state); got != defaultPollInterval {
		t.Errorf("poll interval after window = %v, want %v", got, defaultPollInterval)
	}
}

func TestOnUpdateFires(t *testing.T) {
	t.Parallel()

	mgr := androidFake()
	c := NewCoordinator([]manager.DeviceManager{mgr})

	var (
		mu      sync.Mutex
		updates []models.Platform
	)
	c.OnUpdate = func(p models.Platform) {
		mu.Lock()
		defer mu.Unlock()
		updates = append(updates, p)
	}

	if err := c.Refresh(context.Background(), models.PlatformAndroid); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(updates) != 1 || updates[0] != models.PlatformAndroid {
		t.Errorf("unexpected updates %v", updates)
	}
}
