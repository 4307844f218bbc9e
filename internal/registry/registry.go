package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jeju-platform/edge-engine/internal/domain"
	"github.com/jeju-platform/edge-engine/internal/port"
)

// Registry 维护本进程的应用缓存，并与持久化注册表协调。
// 变更策略：先改缓存（本地立即一致），再持久化，最后尽力通知兄弟 pod。
// 持久化失败不阻塞请求：persistRequired 时以 warning 上浮，否则静默容忍。
type Registry struct {
	primary   port.RegistryStore
	secondary port.RegistryStore // 可为 nil；协调时作为 primary 无数据的兜底
	notifier  port.SiblingNotifier

	persistRequired bool
	syncInterval    time.Duration

	mu      sync.RWMutex
	apps    map[string]*domain.DeployedApp
	devApps map[string]*domain.DeployedApp // 本地开发注册表，不持久化

	lastSync   time.Time
	lastSource string
	degraded   bool

	cancel context.CancelFunc
	done   chan struct{}
}

type Option func(*Registry)

// WithSecondaryStore 设置协调兜底后端（primary 无数据时读取）。
func WithSecondaryStore(s port.RegistryStore) Option {
	return func(r *Registry) { r.secondary = s }
}

// WithDevApps 注入本地开发应用，仅参与查找，绝不持久化。
func WithDevApps(apps []*domain.DeployedApp) Option {
	return func(r *Registry) {
		for _, a := range apps {
			a.Normalize()
			r.devApps[a.Name] = a
		}
	}
}

func New(primary port.RegistryStore, notifier port.SiblingNotifier, persistRequired bool, syncInterval time.Duration, opts ...Option) *Registry {
	r := &Registry{
		primary:         primary,
		notifier:        notifier,
		persistRequired: persistRequired,
		syncInterval:    syncInterval,
		apps:            make(map[string]*domain.DeployedApp),
		devApps:         make(map[string]*domain.DeployedApp),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// List 返回缓存应用的副本列表。
func (r *Registry) List() []*domain.DeployedApp {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.DeployedApp, 0, len(r.apps))
	for _, a := range r.apps {
		cp := *a
		out = append(out, &cp)
	}
	return out
}

// Get 按精确名称查缓存。
func (r *Registry) Get(name string) (*domain.DeployedApp, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.apps[name]
	if !ok {
		return nil, false
	}
	cp := *a
	return &cp, true
}

// Resolve 按注册表的查找顺序解析应用：
// 精确名称 → 别名域（<app>.jeju 约定）→ 本地开发注册表。
func (r *Registry) Resolve(name string) (*domain.DeployedApp, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if a, ok := r.apps[name]; ok {
		cp := *a
		return &cp, true
	}

	alias := name + domain.AliasSuffix
	for _, a := range r.apps {
		if a.AliasDomain() == alias {
			cp := *a
			return &cp, true
		}
	}

	if a, ok := r.devApps[name]; ok {
		cp := *a
		return &cp, true
	}
	return nil, false
}

// Register 注册或更新一个应用。重新部署保留首次 DeployedAt。
// 返回值第二项是降级警告（持久化失败且 persistRequired 时非空）。
func (r *Registry) Register(ctx context.Context, app *domain.DeployedApp) (*domain.DeployedApp, string, error) {
	app.Normalize()
	if err := domain.ValidateApp(app); err != nil {
		return nil, "", err
	}

	now := time.Now()
	app.UpdatedAt = now

	r.mu.Lock()
	if prev, ok := r.apps[app.Name]; ok {
		app.DeployedAt = prev.DeployedAt
	} else {
		app.DeployedAt = now
	}
	stored := *app
	r.apps[app.Name] = &stored
	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	warning := r.persist(ctx, snapshot)
	r.notifyAsync()

	echo := stored
	return &echo, warning, nil
}

// Unregister 注销应用。未知名称返回 false。
func (r *Registry) Unregister(ctx context.Context, name string) (bool, string, error) {
	r.mu.Lock()
	_, ok := r.apps[name]
	if !ok {
		r.mu.Unlock()
		return false, "", nil
	}
	delete(r.apps, name)
	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	if err := r.primary.Remove(ctx, name); err != nil {
		slog.Error("registry: remove from store failed", "app", name, "store", r.primary.Name(), "error", err)
	}
	warning := r.persist(ctx, snapshot)
	r.notifyAsync()
	return true, warning, nil
}

func (r *Registry) snapshotLocked() []*domain.DeployedApp {
	out := make([]*domain.DeployedApp, 0, len(r.apps))
	for _, a := range r.apps {
		cp := *a
		out = append(out, &cp)
	}
	return out
}

// persist 落盘全量快照。失败绝不让请求失败：persistRequired 时返回警告串，
// 否则只记 debug（本地开发多半没有可用后端）。
func (r *Registry) persist(ctx context.Context, apps []*domain.DeployedApp) string {
	err := r.primary.SaveAll(ctx, apps)

	r.mu.Lock()
	r.degraded = err != nil
	r.mu.Unlock()

	if err == nil {
		return ""
	}
	if r.persistRequired {
		slog.Error("registry: persistence failed, serving from memory only", "store", r.primary.Name(), "error", err)
		return fmt.Sprintf("persistence degraded: %s unavailable", r.primary.Name())
	}
	slog.Debug("registry: persistence skipped", "store", r.primary.Name(), "error", err)
	return ""
}

// notifyAsync 在后台通知兄弟 pod 拉起协调，一次性尽力而为。
func (r *Registry) notifyAsync() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		r.notifier.NotifySync(ctx)
	}()
}

// SyncResult 描述一次协调的结果。
type SyncResult struct {
	Count  int    `json:"count"`
	Merged int    `json:"merged"`
	Source string `json:"source"`
}

// Sync 与持久化注册表协调一次：先读 primary，无数据时退到 secondary；
// 逐应用按较新的 UpdatedAt 合并进缓存，而不是整表替换。
func (r *Registry) Sync(ctx context.Context) (*SyncResult, error) {
	apps, err := r.primary.Load(ctx)
	source := r.primary.Name()
	if err != nil {
		slog.Warn("registry: sync load failed", "store", source, "error", err)
	}
	if len(apps) == 0 && r.secondary != nil {
		fallback, ferr := r.secondary.Load(ctx)
		if ferr != nil {
			slog.Warn("registry: fallback load failed", "store", r.secondary.Name(), "error", ferr)
			if err != nil {
				return nil, err
			}
		} else if len(fallback) > 0 {
			apps = fallback
			source = r.secondary.Name()
			err = nil
		}
	}
	if err != nil && len(apps) == 0 {
		return nil, err
	}

	merged := 0
	r.mu.Lock()
	for _, a := range apps {
		existing, ok := r.apps[a.Name]
		if ok && !a.UpdatedAt.After(existing.UpdatedAt) {
			continue
		}
		cp := *a
		r.apps[a.Name] = &cp
		merged++
	}
	count := len(r.apps)
	r.lastSync = time.Now()
	r.lastSource = source
	r.mu.Unlock()

	slog.Info("registry: sync complete", "source", source, "loaded", len(apps), "merged", merged)
	return &SyncResult{Count: count, Merged: merged, Source: source}, nil
}

// Health 是 /apps/health 的快照。
type Health struct {
	Apps         int       `json:"apps"`
	LastSync     time.Time `json:"last_sync"`
	SyncInterval string    `json:"sync_interval"`
	LastSource   string    `json:"last_source,omitempty"`
	Available    bool      `json:"persistence_available"`
	Degraded     bool      `json:"degraded"`
}

func (r *Registry) Health(ctx context.Context) Health {
	available := r.primary.Available(ctx)
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Health{
		Apps:         len(r.apps),
		LastSync:     r.lastSync,
		SyncInterval: r.syncInterval.String(),
		LastSource:   r.lastSource,
		Available:    available,
		Degraded:     r.degraded,
	}
}

// Start 启动后台协调循环（先立即同步一次）。Stop 之前只应调用一次。
func (r *Registry) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})

	go func() {
		defer close(r.done)
		if _, err := r.Sync(ctx); err != nil {
			slog.Warn("registry: initial sync failed", "error", err)
		}
		ticker := time.NewTicker(r.syncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := r.Sync(ctx); err != nil {
					slog.Warn("registry: periodic sync failed", "error", err)
				}
			}
		}
	}()
}

// Stop 停止后台协调循环并等待其退出。
func (r *Registry) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}
