package route

import (
	"path"
	"strings"
)

// RootDocument 是前端产物的根文档。
const RootDocument = "index.html"

// assetExtensions 是按扩展名判定静态资源的固定集合。
var assetExtensions = map[string]struct{}{
	".html": {}, ".js": {}, ".mjs": {}, ".css": {}, ".map": {},
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".svg": {}, ".ico": {}, ".webp": {},
	".json": {}, ".txt": {}, ".xml": {}, ".pdf": {},
	".woff": {}, ".woff2": {}, ".ttf": {}, ".eot": {},
	".mp3": {}, ".mp4": {}, ".webm": {}, ".wasm": {},
}

// IsAPIPath 判断路径是否命中任一 API 前缀：相等，或以 / 为边界的前缀。
// "/apix" 不命中前缀 "/api"。
func IsAPIPath(p string, apiPaths []string) bool {
	for _, prefix := range apiPaths {
		if p == prefix {
			return true
		}
		if strings.HasPrefix(p, prefix) && len(p) > len(prefix) && p[len(prefix)] == '/' {
			return true
		}
	}
	return false
}

// IsAssetPath 判断路径是否带已知静态资源扩展名。
func IsAssetPath(p string) bool {
	ext := strings.ToLower(path.Ext(p))
	if ext == "" {
		return false
	}
	_, ok := assetExtensions[ext]
	return ok
}
