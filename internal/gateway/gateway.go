package gateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/jeju-platform/edge-engine/internal/domain"
	"github.com/jeju-platform/edge-engine/internal/port"
	"github.com/jeju-platform/edge-engine/internal/registry"
	"github.com/jeju-platform/edge-engine/internal/route"
	"github.com/jeju-platform/edge-engine/internal/service"
)

// Gateway 是边缘请求入口：按主机名解析应用，按路径分流到
// 前端产物服务或后端函数代理。不是应用请求时交还给 next。
type Gateway struct {
	rules     *route.HostRules
	registry  *registry.Registry
	functions *service.FunctionService
	store     port.ContentStore

	functionGateway string // <function-gateway>/<id>/http<path> 的基地址
	devCDNURL       string // 本地开发时无产物声明的兜底代理目标
	proxyTimeout    time.Duration
	fetchTimeout    time.Duration // 内容网关目录取数的上限

	httpClient *http.Client
	next       http.Handler
}

func New(
	rules *route.HostRules,
	reg *registry.Registry,
	functions *service.FunctionService,
	store port.ContentStore,
	functionGateway, devCDNURL string,
	proxyTimeout, fetchTimeout time.Duration,
	next http.Handler,
) *Gateway {
	return &Gateway{
		rules:           rules,
		registry:        reg,
		functions:       functions,
		store:           store,
		functionGateway: strings.TrimRight(functionGateway, "/"),
		devCDNURL:       strings.TrimRight(devCDNURL, "/"),
		proxyTimeout:    proxyTimeout,
		fetchTimeout:    fetchTimeout,
		httpClient: &http.Client{
			// 超时由每请求 context 控制，这里不设全局值
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		next: next,
	}
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	appName, ok := g.rules.AppFromHost(r.Host)
	if !ok {
		g.decline(w, r)
		return
	}

	app, ok := g.registry.Resolve(appName)
	if !ok || !app.Enabled {
		g.decline(w, r)
		return
	}

	if route.IsAPIPath(r.URL.Path, app.APIPaths) {
		g.proxyBackend(w, r, app)
		return
	}

	if app.HasFrontend() {
		g.serveFrontend(w, r, app)
		return
	}

	// 开发环境：没有声明前端产物时代理到本地 CDN 替身
	g.proxyTo(w, r, g.devCDNURL+r.URL.Path, app.Name)
}

func (g *Gateway) decline(w http.ResponseWriter, r *http.Request) {
	if g.next != nil {
		g.next.ServeHTTP(w, r)
		return
	}
	http.Error(w, "not found", http.StatusNotFound)
}

// serveFrontend 解析并回放前端产物，首个命中生效：
// 静态文件表探测 → 目录型内容标识经网关取数 → 根文档兜底。
func (g *Gateway) serveFrontend(w http.ResponseWriter, r *http.Request, app *domain.DeployedApp) {
	key := route.NormalizePath(r.URL.Path, app.SPA)

	if cid, ok := route.ResolveStatic(app.StaticFiles, key); ok {
		data, contentType, err := g.store.Get(r.Context(), cid)
		if err != nil {
			slog.Error("frontend fetch failed", "app", app.Name, "cid", cid, "error", err)
			http.Error(w, "upstream unavailable", http.StatusBadGateway)
			return
		}
		g.writeAsset(w, app.Name, key, data, contentType)
		return
	}

	if app.FrontendCID != "" {
		ctx, cancel := context.WithTimeout(r.Context(), g.fetchTimeout)
		defer cancel()

		data, contentType, err := g.store.GetPath(ctx, app.FrontendCID, key)
		if err != nil && key == route.RootDocument {
			// 根文档取不到时退回整目录标识本身
			data, contentType, err = g.store.Get(ctx, app.FrontendCID)
		}
		if err == nil {
			g.writeAsset(w, app.Name, key, data, contentType)
			return
		}
		slog.Warn("frontend gateway fetch failed", "app", app.Name, "cid", app.FrontendCID, "path", key, "error", err)
	}

	http.Error(w, "not found", http.StatusNotFound)
}

func (g *Gateway) writeAsset(w http.ResponseWriter, appName, key string, data []byte, contentType string) {
	if contentType == "" {
		contentType = mime.TypeByExtension(path.Ext(key))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	// 带扩展名的路径内容不可变，根文档短缓存以便重新部署生效
	if key != route.RootDocument && route.IsAssetPath(key) {
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	} else {
		w.Header().Set("Cache-Control", "public, max-age=60")
	}
	w.Header().Set("X-Served-By", "edge-frontend")
	w.Header().Set("X-Jeju-App", appName)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// proxyBackend 把 API 路径转发到后端：直连地址优先，否则经函数网关，
// 转发前保证目标函数已驻留本地引擎。
func (g *Gateway) proxyBackend(w http.ResponseWriter, r *http.Request, app *domain.DeployedApp) {
	var target string
	switch {
	case app.BackendURL != "":
		target = strings.TrimRight(app.BackendURL, "/") + r.URL.Path
	case app.BackendFunction != "":
		fn, err := g.functions.EnsureResident(r.Context(), app.BackendFunction)
		if err != nil {
			slog.Error("backend residency failed", "app", app.Name, "function", app.BackendFunction, "error", err)
			writeProxyError(w, http.StatusBadGateway, "Backend unavailable")
			return
		}
		target = g.functionGateway + "/" + fn.ID + "/http" + r.URL.Path
	default:
		writeProxyError(w, http.StatusBadGateway, "Backend unavailable")
		return
	}

	g.proxyTo(w, r, target, app.Name)
}

// proxyTo 以固定超时转发一次请求：超时映射 504，传输失败映射 502，不重试。
func (g *Gateway) proxyTo(w http.ResponseWriter, r *http.Request, target, appName string) {
	ctx, cancel := context.WithTimeout(r.Context(), g.proxyTimeout)
	defer cancel()

	targetURL, err := url.Parse(target)
	if err != nil {
		writeProxyError(w, http.StatusBadGateway, "Backend unavailable")
		return
	}
	targetURL.RawQuery = r.URL.RawQuery

	var body io.Reader
	if methodPermitsBody(r.Method) {
		body = r.Body
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, targetURL.String(), body)
	if err != nil {
		writeProxyError(w, http.StatusBadGateway, "Backend unavailable")
		return
	}
	copyHeaders(req.Header, r.Header)
	req.Host = targetURL.Host
	req.Header.Set("X-Forwarded-Host", r.Host)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			slog.Error("backend timeout", "app", appName, "target", target)
			writeProxyError(w, http.StatusGatewayTimeout, "Backend timeout")
			return
		}
		slog.Error("backend proxy failed", "app", appName, "target", target, "error", err)
		writeProxyError(w, http.StatusBadGateway, "Backend unavailable")
		return
	}
	defer resp.Body.Close()

	copyHeaders(w.Header(), resp.Header)
	w.Header().Set("X-Served-By", "edge-backend")
	w.Header().Set("X-Jeju-App", appName)
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

func writeProxyError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}

func methodPermitsBody(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodDelete, http.MethodOptions:
		return false
	}
	return true
}

func copyHeaders(dst, src http.Header) {
	for k, vv := range src {
		if k == "Host" {
			continue
		}
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
}
