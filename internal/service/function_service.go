package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jeju-platform/edge-engine/internal/domain"
	"github.com/jeju-platform/edge-engine/internal/port"
	"github.com/google/uuid"
)

// FunctionService 管理后端函数的全生命周期：部署、更新、回滚、删除，
// 以及从内容标识或持久化行惰性物化到本地引擎。
// 引擎内状态是服务流量的权威；持久化只为重启恢复服务。
type FunctionService struct {
	repo     port.FunctionRepository
	versions port.FunctionVersionRepository
	store    port.ContentStore
	engine   port.ExecutionEngine

	// 进程内 内容标识 → 函数ID 缓存，支撑无协调的惰性物化。
	mu    sync.RWMutex
	byCID map[string]string
}

func NewFunctionService(
	repo port.FunctionRepository,
	versions port.FunctionVersionRepository,
	store port.ContentStore,
	engine port.ExecutionEngine,
) *FunctionService {
	return &FunctionService{
		repo:     repo,
		versions: versions,
		store:    store,
		engine:   engine,
		byCID:    make(map[string]string),
	}
}

type DeployFunctionRequest struct {
	Name       string            `json:"name"`
	Code       []byte            `json:"code,omitempty"`     // 内联代码包，上传后铸造新标识
	CodeCID    string            `json:"code_cid,omitempty"` // 已有内容标识，先验存在性
	Entrypoint string            `json:"entrypoint,omitempty"`
	MemoryMB   int               `json:"memory_mb,omitempty"`
	TimeoutMS  int               `json:"timeout_ms,omitempty"`
	Envs       map[string]string `json:"envs,omitempty"`
}

func (s *FunctionService) Deploy(ctx context.Context, owner string, req DeployFunctionRequest) (*domain.Function, error) {
	if owner == "" {
		return nil, domain.ErrUnauthorized
	}
	if req.Name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}

	cid, err := s.resolveCode(ctx, req.Code, req.CodeCID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	fn := &domain.Function{
		ID:         uuid.New().String(),
		Name:       req.Name,
		Owner:      owner,
		CodeCID:    cid,
		Entrypoint: req.Entrypoint,
		MemoryMB:   req.MemoryMB,
		TimeoutMS:  req.TimeoutMS,
		Envs:       req.Envs,
		Status:     domain.FunctionStatusActive,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	fn.ApplyDefaults()

	if err := s.engine.Deploy(ctx, fn); err != nil {
		return nil, fmt.Errorf("deploy to engine: %w", err)
	}

	s.persist(ctx, fn, true)
	s.cacheCID(fn.CodeCID, fn.ID)
	return fn, nil
}

type UpdateFunctionRequest struct {
	Code       []byte            `json:"code,omitempty"`
	CodeCID    string            `json:"code_cid,omitempty"`
	Entrypoint string            `json:"entrypoint,omitempty"`
	MemoryMB   int               `json:"memory_mb,omitempty"`
	TimeoutMS  int               `json:"timeout_ms,omitempty"`
	Envs       map[string]string `json:"envs,omitempty"`
}

// Update 应用补丁并把版本 +1。引擎不支持原地改描述符，
// 任何字段变化都走 undeploy+redeploy，让引擎反映新描述。
func (s *FunctionService) Update(ctx context.Context, id, owner string, req UpdateFunctionRequest) (*domain.Function, error) {
	fn, err := s.authorize(ctx, id, owner)
	if err != nil {
		return nil, err
	}

	oldCID := fn.CodeCID
	if len(req.Code) > 0 || req.CodeCID != "" {
		cid, err := s.resolveCode(ctx, req.Code, req.CodeCID)
		if err != nil {
			return nil, err
		}
		fn.CodeCID = cid
	}
	if req.Entrypoint != "" {
		fn.Entrypoint = req.Entrypoint
	}
	if req.MemoryMB > 0 {
		fn.MemoryMB = req.MemoryMB
	}
	if req.TimeoutMS > 0 {
		fn.TimeoutMS = req.TimeoutMS
	}
	if req.Envs != nil {
		fn.Envs = req.Envs
	}

	fn.Version++
	fn.UpdatedAt = time.Now()

	if err := s.engine.Undeploy(ctx, fn.ID); err != nil {
		slog.Warn("undeploy before redeploy failed", "function_id", fn.ID, "error", err)
	}
	if err := s.engine.Deploy(ctx, fn); err != nil {
		fn.Status = domain.FunctionStatusError
		s.persist(ctx, fn, false)
		return nil, fmt.Errorf("redeploy to engine: %w", err)
	}
	fn.Status = domain.FunctionStatusActive

	s.persist(ctx, fn, true)
	if fn.CodeCID != oldCID {
		s.evictCID(oldCID)
		s.cacheCID(fn.CodeCID, fn.ID)
	}
	return fn, nil
}

func (s *FunctionService) Delete(ctx context.Context, id, owner string) (bool, error) {
	fn, err := s.authorize(ctx, id, owner)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if err := s.engine.Undeploy(ctx, id); err != nil {
		slog.Warn("engine undeploy failed", "function_id", id, "error", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return false, err
	}
	s.evictCID(fn.CodeCID)
	return true, nil
}

// Rollback 把函数回滚到历史版本。目标默认为当前版本 -1。
// 回滚绝不回退版本号：复制目标快照的可部署字段，落在 current+1 上，
// 调用数与错误数保持现场值不动。
func (s *FunctionService) Rollback(ctx context.Context, id, owner string, targetVersion int) (*domain.Function, error) {
	fn, err := s.authorize(ctx, id, owner)
	if err != nil {
		return nil, err
	}

	if targetVersion == 0 {
		targetVersion = fn.Version - 1
	}
	if targetVersion < 1 {
		return nil, fmt.Errorf("%w: rollback target %d is not a valid version", domain.ErrInvalidInput, targetVersion)
	}

	snapshot, err := s.versions.Find(ctx, id, targetVersion)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: version %d not found in history", domain.ErrVersionNotFound, targetVersion)
		}
		return nil, err
	}

	oldCID := fn.CodeCID
	fn.Restore(snapshot)
	fn.Version++
	fn.UpdatedAt = time.Now()

	if err := s.engine.Undeploy(ctx, fn.ID); err != nil {
		slog.Warn("undeploy before rollback failed", "function_id", fn.ID, "error", err)
	}
	if err := s.engine.Deploy(ctx, fn); err != nil {
		fn.Status = domain.FunctionStatusError
		s.persist(ctx, fn, false)
		return nil, fmt.Errorf("redeploy rolled-back function: %w", err)
	}
	fn.Status = domain.FunctionStatusActive

	s.persist(ctx, fn, true)
	if fn.CodeCID != oldCID {
		s.evictCID(oldCID)
		s.cacheCID(fn.CodeCID, fn.ID)
	}
	return fn, nil
}

func (s *FunctionService) Get(ctx context.Context, id string) (*domain.Function, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *FunctionService) List(ctx context.Context, owner string) ([]*domain.Function, error) {
	return s.repo.FindAll(ctx, owner)
}

// EnsureResident 保证标识指向的函数驻留在本地引擎，必要时惰性物化：
// 像内容标识的先查进程内缓存与内容存储，合成匿名函数部署；
// 否则按函数 ID 读持久化行重新部署。任何 pod 都能凭请求路径自举，无需跨 pod 协调。
func (s *FunctionService) EnsureResident(ctx context.Context, idOrCID string) (*domain.Function, error) {
	if domain.LooksLikeCID(idOrCID) {
		return s.ensureByCID(ctx, idOrCID)
	}
	return s.ensureByID(ctx, idOrCID)
}

func (s *FunctionService) ensureByCID(ctx context.Context, cid string) (*domain.Function, error) {
	s.mu.RLock()
	id, cached := s.byCID[cid]
	s.mu.RUnlock()

	if cached {
		fn, err := s.engine.GetFunction(ctx, id)
		if err == nil {
			return fn, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		// 缓存失效（引擎重启等），清掉重新物化
		s.evictCID(cid)
	}

	exists, err := s.store.Exists(ctx, cid)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrFunctionNotFound
	}

	now := time.Now()
	fn := &domain.Function{
		ID:        uuid.New().String(),
		Name:      "cid-" + shortCID(cid),
		Owner:     domain.AnonymousOwner,
		CodeCID:   cid,
		Status:    domain.FunctionStatusActive,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	fn.ApplyDefaults()

	if err := s.engine.Deploy(ctx, fn); err != nil {
		return nil, fmt.Errorf("materialize %s: %w", cid, err)
	}
	s.cacheCID(cid, fn.ID)
	slog.Info("function materialized from content id", "cid", cid, "function_id", fn.ID)
	return fn, nil
}

func (s *FunctionService) ensureByID(ctx context.Context, id string) (*domain.Function, error) {
	if fn, err := s.engine.GetFunction(ctx, id); err == nil {
		return fn, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	fn, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Deploy(ctx, fn); err != nil {
		return nil, fmt.Errorf("rehydrate %s: %w", id, err)
	}
	slog.Info("function rehydrated from registry", "function_id", id, "version", fn.Version)
	return fn, nil
}

// Invoke 同步调用函数，必要时先惰性物化。
func (s *FunctionService) Invoke(ctx context.Context, id string, payload []byte) ([]byte, error) {
	fn, err := s.EnsureResident(ctx, id)
	if err != nil {
		return nil, err
	}
	result, err := s.engine.Invoke(ctx, fn.ID, payload)
	s.recordInvocation(fn.ID, err != nil)
	return result, err
}

// InvokeAsync 入队调用并立即返回；终态错误只出现在日志里。
func (s *FunctionService) InvokeAsync(id string, payload []byte, timeout time.Duration) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		fn, err := s.EnsureResident(ctx, id)
		if err != nil {
			slog.Error("async invoke: ensure resident failed", "function_id", id, "error", err)
			return
		}
		_, err = s.engine.Invoke(ctx, fn.ID, payload)
		s.recordInvocation(fn.ID, err != nil)
		if err != nil {
			slog.Error("async invoke failed", "function_id", fn.ID, "error", err)
		}
	}()
}

// InvokeHTTP 以 HTTP 事件形态调用函数，响应原样回流。
func (s *FunctionService) InvokeHTTP(ctx context.Context, id string, event *port.HTTPEvent) (*port.HTTPResult, error) {
	fn, err := s.EnsureResident(ctx, id)
	if err != nil {
		return nil, err
	}
	result, err := s.engine.InvokeHTTP(ctx, fn.ID, event)
	s.recordInvocation(fn.ID, err != nil)
	return result, err
}

func (s *FunctionService) Logs(ctx context.Context, id string, limit int) ([]port.LogEntry, error) {
	return s.engine.GetLogs(ctx, id, limit)
}

func (s *FunctionService) Metrics(ctx context.Context, id string) (*port.Metrics, error) {
	return s.engine.GetMetrics(ctx, id)
}

// resolveCode 决定代码包的内容标识：内联代码上传铸新，已有标识验存在性。
func (s *FunctionService) resolveCode(ctx context.Context, code []byte, cid string) (string, error) {
	switch {
	case len(code) > 0:
		minted, err := s.store.Upload(ctx, code)
		if err != nil {
			return "", fmt.Errorf("upload code: %w", err)
		}
		return minted, nil
	case cid != "":
		exists, err := s.store.Exists(ctx, cid)
		if err != nil {
			return "", fmt.Errorf("verify code cid: %w", err)
		}
		if !exists {
			return "", fmt.Errorf("%w: code cid %s not in content store", domain.ErrInvalidInput, cid)
		}
		return cid, nil
	default:
		return "", fmt.Errorf("%w: either code or code_cid is required", domain.ErrInvalidInput)
	}
}

func (s *FunctionService) authorize(ctx context.Context, id, owner string) (*domain.Function, error) {
	if owner == "" {
		return nil, domain.ErrUnauthorized
	}
	fn, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if fn.Owner != owner {
		return nil, fmt.Errorf("%w: function %s is owned by %s", domain.ErrForbidden, id, fn.Owner)
	}
	return fn, nil
}

// persist 落盘函数行（可选附带版本快照）。引擎已经在服务流量，
// 持久化失败只降级为日志，不反悔部署。
func (s *FunctionService) persist(ctx context.Context, fn *domain.Function, withSnapshot bool) {
	var err error
	if fn.Version == 1 {
		err = s.repo.Save(ctx, fn)
	} else {
		err = s.repo.Update(ctx, fn)
	}
	if err != nil {
		slog.Error("function persistence failed, engine remains live", "function_id", fn.ID, "version", fn.Version, "error", err)
		return
	}
	if withSnapshot {
		if err := s.versions.Save(ctx, fn.Snapshot()); err != nil {
			slog.Error("version snapshot persistence failed", "function_id", fn.ID, "version", fn.Version, "error", err)
		}
	}
}

// recordInvocation 尽力累加计数器，失败忽略。
func (s *FunctionService) recordInvocation(id string, failed bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	fn, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return // 匿名物化的函数没有持久化行
	}
	fn.Invocations++
	if failed {
		fn.Errors++
	}
	if err := s.repo.Update(ctx, fn); err != nil {
		slog.Debug("invocation counter update failed", "function_id", id, "error", err)
	}
}

func (s *FunctionService) cacheCID(cid, id string) {
	s.mu.Lock()
	s.byCID[cid] = id
	s.mu.Unlock()
}

func (s *FunctionService) evictCID(cid string) {
	s.mu.Lock()
	delete(s.byCID, cid)
	s.mu.Unlock()
}

func shortCID(cid string) string {
	if len(cid) <= 12 {
		return cid
	}
	return cid[:12]
}
