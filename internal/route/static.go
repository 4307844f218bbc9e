package route

import "strings"

// 常见打包产物的前缀约定：请求路径与构建输出目录之间的错位在这里抹平。
const (
	buildPrefix  = "public/"
	outputPrefix = "dist/"
)

// NormalizePath 把请求路径规整为静态文件表的查找键：
// 根路径映射到根文档，去掉前导斜杠；SPA 的非资源路径一律改写为根文档。
func NormalizePath(p string, spa bool) string {
	if p == "" || p == "/" {
		return RootDocument
	}
	p = strings.TrimPrefix(p, "/")
	if spa && !IsAssetPath(p) {
		return RootDocument
	}
	return p
}

// ResolveStatic 在静态文件表中按固定顺序探测一个路径，首个命中生效：
// 原样、补回前导斜杠、剥掉构建前缀、补上输出前缀、剥掉输出前缀。
func ResolveStatic(staticFiles map[string]string, p string) (string, bool) {
	if len(staticFiles) == 0 {
		return "", false
	}
	candidates := []string{
		p,
		"/" + p,
		strings.TrimPrefix(p, buildPrefix),
		outputPrefix + p,
		strings.TrimPrefix(p, outputPrefix),
	}
	for _, key := range candidates {
		if cid, ok := staticFiles[key]; ok && cid != "" {
			return cid, true
		}
	}
	return "", false
}
