package port

import "context"

// SiblingNotifier 在注册表变更后通知同组其他 pod 拉起一次协调。
// 纯尽力而为：失败只记日志，不重试，不向调用方传播。
type SiblingNotifier interface {
	NotifySync(ctx context.Context)
}
