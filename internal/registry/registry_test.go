package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jeju-platform/edge-engine/internal/domain"
)

// --- stubs ---

type stubStore struct {
	name      string
	apps      []*domain.DeployedApp
	loadErr   error
	saveErr   error
	saved     [][]*domain.DeployedApp
	removed   []string
	available bool
}

func (s *stubStore) Load(_ context.Context) ([]*domain.DeployedApp, error) {
	return s.apps, s.loadErr
}

func (s *stubStore) SaveAll(_ context.Context, apps []*domain.DeployedApp) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, apps)
	return nil
}

func (s *stubStore) Remove(_ context.Context, name string) error {
	s.removed = append(s.removed, name)
	return nil
}

func (s *stubStore) Available(_ context.Context) bool { return s.available }
func (s *stubStore) Name() string                     { return s.name }

type stubNotifier struct {
	calls chan struct{}
}

func (n *stubNotifier) NotifySync(context.Context) {
	if n.calls != nil {
		n.calls <- struct{}{}
	}
}

func newTestRegistry(store *stubStore, opts ...Option) *Registry {
	return New(store, &stubNotifier{}, false, time.Minute, opts...)
}

func frontendApp(name string) *domain.DeployedApp {
	return &domain.DeployedApp{
		Name:        name,
		StaticFiles: map[string]string{"index.html": "cidA"},
		Enabled:     true,
	}
}

// --- tests ---

func TestRegisterAndGet(t *testing.T) {
	store := &stubStore{name: "test", available: true}
	reg := newTestRegistry(store)

	stored, warning, err := reg.Register(context.Background(), frontendApp("foo"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if warning != "" {
		t.Errorf("unexpected warning: %q", warning)
	}
	if stored.DeployedAt.IsZero() || stored.UpdatedAt.IsZero() {
		t.Error("timestamps should be set on registration")
	}
	if len(stored.APIPaths) == 0 {
		t.Error("api paths default should be applied")
	}

	got, ok := reg.Get("foo")
	if !ok || got.Name != "foo" {
		t.Fatalf("Get(foo) = %v, %v", got, ok)
	}
	if len(store.saved) != 1 {
		t.Errorf("expected one persist call, got %d", len(store.saved))
	}
}

func TestRegisterRejectsInvalid(t *testing.T) {
	reg := newTestRegistry(&stubStore{name: "test"})

	_, _, err := reg.Register(context.Background(), &domain.DeployedApp{Name: "no-target"})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}

	_, _, err = reg.Register(context.Background(), frontendApp("Bad_Name"))
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for bad name, got %v", err)
	}
}

func TestReregisterPreservesDeployedAt(t *testing.T) {
	reg := newTestRegistry(&stubStore{name: "test"})
	ctx := context.Background()

	first, _, err := reg.Register(ctx, frontendApp("foo"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	time.Sleep(5 * time.Millisecond)

	updated := frontendApp("foo")
	updated.StaticFiles = map[string]string{"index.html": "cidB"}
	second, _, err := reg.Register(ctx, updated)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !second.DeployedAt.Equal(first.DeployedAt) {
		t.Errorf("DeployedAt changed on redeploy: %v != %v", second.DeployedAt, first.DeployedAt)
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Error("UpdatedAt should advance on redeploy")
	}

	got, _ := reg.Get("foo")
	if got.StaticFiles["index.html"] != "cidB" {
		t.Errorf("cache should reflect most recent write, got %q", got.StaticFiles["index.html"])
	}
}

func TestRegisterDegradedWarning(t *testing.T) {
	store := &stubStore{name: "test", saveErr: errors.New("store down")}

	// persistRequired 时返回警告
	reg := New(store, &stubNotifier{}, true, time.Minute)
	_, warning, err := reg.Register(context.Background(), frontendApp("foo"))
	if err != nil {
		t.Fatalf("persistence failure must not fail the request: %v", err)
	}
	if warning == "" {
		t.Error("expected degraded warning when persistence is required")
	}

	// 本地模式静默容忍
	reg = New(store, &stubNotifier{}, false, time.Minute)
	_, warning, err = reg.Register(context.Background(), frontendApp("bar"))
	if err != nil || warning != "" {
		t.Errorf("dev mode should tolerate silently, got warning=%q err=%v", warning, err)
	}
}

func TestRegisterNotifiesSiblings(t *testing.T) {
	notifier := &stubNotifier{calls: make(chan struct{}, 1)}
	reg := New(&stubStore{name: "test"}, notifier, false, time.Minute)

	if _, _, err := reg.Register(context.Background(), frontendApp("foo")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case <-notifier.calls:
	case <-time.After(time.Second):
		t.Error("expected sibling notification after mutation")
	}
}

func TestUnregister(t *testing.T) {
	store := &stubStore{name: "test"}
	reg := newTestRegistry(store)
	ctx := context.Background()

	reg.Register(ctx, frontendApp("foo"))

	removed, _, err := reg.Unregister(ctx, "foo")
	if err != nil || !removed {
		t.Fatalf("Unregister = %v, %v", removed, err)
	}
	if _, ok := reg.Get("foo"); ok {
		t.Error("app should be gone from cache")
	}
	if len(store.removed) != 1 || store.removed[0] != "foo" {
		t.Errorf("expected row removal for foo, got %v", store.removed)
	}

	removed, _, err = reg.Unregister(ctx, "foo")
	if err != nil || removed {
		t.Errorf("second Unregister = %v, %v; want false, nil", removed, err)
	}
}

func TestResolveAliasAndDev(t *testing.T) {
	devApps := []*domain.DeployedApp{frontendApp("devonly")}
	reg := newTestRegistry(&stubStore{name: "test"}, WithDevApps(devApps))
	ctx := context.Background()

	app := frontendApp("foo")
	app.Domain = "foo.jeju"
	reg.Register(ctx, app)

	if got, ok := reg.Resolve("foo"); !ok || got.Name != "foo" {
		t.Errorf("exact resolve failed: %v, %v", got, ok)
	}
	// 别名域按 <app>.jeju 约定匹配
	if got, ok := reg.Resolve("foo"); !ok || got.AliasDomain() != "foo.jeju" {
		t.Errorf("alias resolve failed: %v, %v", got, ok)
	}
	if got, ok := reg.Resolve("devonly"); !ok || got.Name != "devonly" {
		t.Errorf("dev registry resolve failed: %v, %v", got, ok)
	}
	if _, ok := reg.Resolve("missing"); ok {
		t.Error("unknown app should not resolve")
	}
}

func TestSyncMergesByNewerUpdatedAt(t *testing.T) {
	older := frontendApp("foo")
	older.StaticFiles = map[string]string{"index.html": "cidOld"}
	older.UpdatedAt = time.Now().Add(-time.Hour)

	store := &stubStore{name: "test", apps: []*domain.DeployedApp{older}}
	reg := newTestRegistry(store)
	ctx := context.Background()

	// 本地缓存里的 foo 更新，sync 不应倒灌旧数据
	reg.Register(ctx, frontendApp("foo"))

	result, err := reg.Sync(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Merged != 0 {
		t.Errorf("older record should not be merged, merged=%d", result.Merged)
	}
	got, _ := reg.Get("foo")
	if got.StaticFiles["index.html"] == "cidOld" {
		t.Error("sync overwrote a newer cache entry with stale data")
	}

	// 远端更新时要合并进来
	newer := frontendApp("bar")
	newer.UpdatedAt = time.Now().Add(time.Hour)
	store.apps = []*domain.DeployedApp{newer}

	result, err = reg.Sync(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Merged != 1 {
		t.Errorf("expected 1 merged, got %d", result.Merged)
	}
	if _, ok := reg.Get("bar"); !ok {
		t.Error("merged app missing from cache")
	}
}

func TestSyncFallsBackToSecondary(t *testing.T) {
	primary := &stubStore{name: "configmap"}
	secondary := &stubStore{name: "postgres", apps: []*domain.DeployedApp{frontendApp("foo")}}
	reg := newTestRegistry(primary, WithSecondaryStore(secondary))

	result, err := reg.Sync(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Source != "postgres" {
		t.Errorf("expected fallback source postgres, got %q", result.Source)
	}
	if _, ok := reg.Get("foo"); !ok {
		t.Error("fallback data missing from cache")
	}
}

func TestHealth(t *testing.T) {
	store := &stubStore{name: "test", available: true}
	reg := newTestRegistry(store)
	ctx := context.Background()

	reg.Register(ctx, frontendApp("foo"))
	reg.Sync(ctx)

	h := reg.Health(ctx)
	if h.Apps != 1 {
		t.Errorf("Apps = %d, want 1", h.Apps)
	}
	if !h.Available {
		t.Error("expected persistence available")
	}
	if h.LastSync.IsZero() {
		t.Error("LastSync should be set after Sync")
	}
}
