package port

import (
	"context"

	"github.com/jeju-platform/edge-engine/internal/domain"
)

// RegistryStore 是应用注册表的持久化后端。
// 两种实现并存：ConfigMap 整文档替换，或关系库逐行 upsert；启动时探测选定其一。
type RegistryStore interface {
	// Load 返回持久化的全量应用列表。
	Load(ctx context.Context) ([]*domain.DeployedApp, error)
	// SaveAll 持久化全量应用列表（整文档替换或逐行 upsert，由实现决定）。
	SaveAll(ctx context.Context, apps []*domain.DeployedApp) error
	// Remove 删除单个应用。整文档后端可以是空操作，由随后的 SaveAll 覆盖。
	Remove(ctx context.Context, name string) error
	// Available 报告后端当前是否可写。
	Available(ctx context.Context) bool
	// Name 返回后端标识（configmap / postgres），用于日志与 sync 响应。
	Name() string
}

type FunctionRepository interface {
	Save(ctx context.Context, fn *domain.Function) error
	FindByID(ctx context.Context, id string) (*domain.Function, error)
	FindAll(ctx context.Context, owner string) ([]*domain.Function, error)
	Update(ctx context.Context, fn *domain.Function) error
	Delete(ctx context.Context, id string) error
}

type FunctionVersionRepository interface {
	Save(ctx context.Context, v *domain.FunctionVersion) error
	Find(ctx context.Context, functionID string, version int) (*domain.FunctionVersion, error)
	FindAll(ctx context.Context, functionID string) ([]*domain.FunctionVersion, error)
}
