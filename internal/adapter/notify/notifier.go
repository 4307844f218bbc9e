package notify

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jeju-platform/edge-engine/internal/port"
)

var _ port.SiblingNotifier = (*HTTPNotifier)(nil)

// HTTPNotifier 通过平台内部负载均衡地址向同组 pod 发一次 sync 触发。
// 打到哪个 pod 由负载均衡决定；收到通知的 pod 自己做协调。
// 完全尽力而为：失败只记日志，绝不重试。
type HTTPNotifier struct {
	syncURL    string
	httpClient *http.Client
}

func NewHTTPNotifier(syncURL string) *HTTPNotifier {
	return &HTTPNotifier{
		syncURL:    strings.TrimRight(syncURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func (n *HTTPNotifier) NotifySync(ctx context.Context) {
	if n.syncURL == "" {
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.syncURL+"/apps/sync", nil)
	if err != nil {
		slog.Warn("sibling notify: build request failed", "error", err)
		return
	}
	resp, err := n.httpClient.Do(req)
	if err != nil {
		slog.Warn("sibling notify failed", "error", err)
		return
	}
	resp.Body.Close()
	slog.Debug("sibling notify sent", "status", resp.StatusCode)
}

// NopNotifier 在未配置内部 sync 地址（单 pod / 本地开发）时使用。
type NopNotifier struct{}

func (NopNotifier) NotifySync(context.Context) {}
