package domain

import "time"

// FunctionStatus 是函数的运行状态。
type FunctionStatus string

const (
	FunctionStatusActive   FunctionStatus = "active"
	FunctionStatusInactive FunctionStatus = "inactive"
	FunctionStatusError    FunctionStatus = "error"
)

// 未显式指定时的函数资源默认值。
const (
	DefaultMemoryMB   = 128
	DefaultTimeoutMS  = 30000
	DefaultEntrypoint = "main.handler"

	// AnonymousOwner 标记由内容标识惰性物化、无归属主体的函数。
	AnonymousOwner = "anonymous"
)

// Function 代表一个已注册的后端函数。
// Version 严格单调递增：每次部署、更新、回滚都 +1，绝不回退或复用。
type Function struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Owner       string            `json:"owner"`
	CodeCID     string            `json:"code_cid"` // 代码包的内容标识
	Entrypoint  string            `json:"entrypoint"`
	MemoryMB    int               `json:"memory_mb"`
	TimeoutMS   int               `json:"timeout_ms"`
	Envs        map[string]string `json:"envs,omitempty"`
	Status      FunctionStatus    `json:"status"`
	Version     int               `json:"version"`
	Invocations int64             `json:"invocations"`
	Errors      int64             `json:"errors"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// ApplyDefaults 填充未指定的资源限制与入口。
func (f *Function) ApplyDefaults() {
	if f.MemoryMB <= 0 {
		f.MemoryMB = DefaultMemoryMB
	}
	if f.TimeoutMS <= 0 {
		f.TimeoutMS = DefaultTimeoutMS
	}
	if f.Entrypoint == "" {
		f.Entrypoint = DefaultEntrypoint
	}
}

// FunctionVersion 是函数可部署字段在某个版本上的只追加快照。
// 创建后不可变，是回滚的唯一事实来源。
type FunctionVersion struct {
	FunctionID string            `json:"function_id"`
	Version    int               `json:"version"`
	CodeCID    string            `json:"code_cid"`
	Entrypoint string            `json:"entrypoint"`
	MemoryMB   int               `json:"memory_mb"`
	TimeoutMS  int               `json:"timeout_ms"`
	Envs       map[string]string `json:"envs,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Snapshot 截取函数当前可部署字段为一个版本快照。
func (f *Function) Snapshot() *FunctionVersion {
	envs := make(map[string]string, len(f.Envs))
	for k, v := range f.Envs {
		envs[k] = v
	}
	return &FunctionVersion{
		FunctionID: f.ID,
		Version:    f.Version,
		CodeCID:    f.CodeCID,
		Entrypoint: f.Entrypoint,
		MemoryMB:   f.MemoryMB,
		TimeoutMS:  f.TimeoutMS,
		Envs:       envs,
		CreatedAt:  time.Now(),
	}
}

// Restore 将快照中的可部署字段恢复到函数上。调用数与错误数不受影响。
func (f *Function) Restore(v *FunctionVersion) {
	f.CodeCID = v.CodeCID
	f.Entrypoint = v.Entrypoint
	f.MemoryMB = v.MemoryMB
	f.TimeoutMS = v.TimeoutMS
	envs := make(map[string]string, len(v.Envs))
	for k, val := range v.Envs {
		envs[k] = val
	}
	f.Envs = envs
}
