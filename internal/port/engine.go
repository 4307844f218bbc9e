package port

import (
	"context"
	"time"

	"github.com/jeju-platform/edge-engine/internal/domain"
)

// HTTPEvent 是 HTTP 透传请求翻译成的引擎事件。
type HTTPEvent struct {
	Method  string              `json:"method"`
	Path    string              `json:"path"`
	Query   map[string][]string `json:"query,omitempty"`
	Headers map[string][]string `json:"headers,omitempty"`
	Body    []byte              `json:"body,omitempty"`
}

// HTTPResult 是引擎对 HTTP 事件的响应，原样回流给客户端。
type HTTPResult struct {
	Status  int                 `json:"status"`
	Headers map[string][]string `json:"headers,omitempty"`
	Body    []byte              `json:"body,omitempty"`
}

// LogEntry 是引擎返回的一条函数日志。
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

// Metrics 是引擎侧的函数运行指标。
type Metrics struct {
	Invocations int64   `json:"invocations"`
	Errors      int64   `json:"errors"`
	AvgDuration float64 `json:"avg_duration_ms"`
}

// ExecutionEngine 是工作进程内的函数执行引擎。
// 同一函数 ID 的重复 Deploy 必须幂等（最后一次注册生效）。
type ExecutionEngine interface {
	Deploy(ctx context.Context, fn *domain.Function) error
	Undeploy(ctx context.Context, id string) error
	// GetFunction 返回本地已驻留的函数描述符，未驻留时返回 domain.ErrFunctionNotFound。
	GetFunction(ctx context.Context, id string) (*domain.Function, error)
	// Invoke 同步调用，阻塞直到拿到结果。
	Invoke(ctx context.Context, id string, payload []byte) ([]byte, error)
	// InvokeHTTP 以 HTTP 事件形态调用，返回可原样回放的响应。
	InvokeHTTP(ctx context.Context, id string, event *HTTPEvent) (*HTTPResult, error)
	GetLogs(ctx context.Context, id string, limit int) ([]LogEntry, error)
	GetMetrics(ctx context.Context, id string) (*Metrics, error)
}
