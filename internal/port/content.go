package port

import "context"

// ContentStore 是内容寻址存储：不可变字节块，以内容标识寻址。
type ContentStore interface {
	// Exists 检查内容标识是否已存在。
	Exists(ctx context.Context, cid string) (bool, error)
	// Upload 上传字节块并返回铸出的内容标识。
	Upload(ctx context.Context, data []byte) (string, error)
	// Get 按内容标识取回字节块，不存在时返回 domain.ErrNotFound。
	Get(ctx context.Context, cid string) ([]byte, string, error)
	// GetPath 从内容网关取 <cid>/<path>（目录型产物），带调用方给定的超时。
	GetPath(ctx context.Context, cid, path string) ([]byte, string, error)
}
