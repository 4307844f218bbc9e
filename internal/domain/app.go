package domain

import "time"

// DefaultAPIPaths 是 App 未声明 API 前缀时的默认值。
var DefaultAPIPaths = []string{"/api"}

// AliasSuffix 是平台内部别名域的固定后缀（<app>.jeju）。
const AliasSuffix = ".jeju"

// DeployedApp 代表一个已部署应用的路由与产物描述，是控制面的核心管理单元。
// 前端产物与后端函数至少声明其一；App 本身不占用任何运行时资源。
type DeployedApp struct {
	Name            string            `json:"name"`
	Domain          string            `json:"domain,omitempty"`   // 别名域，约定 <name>.jeju
	FrontendCID     string            `json:"frontend_cid,omitempty"` // 整目录内容标识
	StaticFiles     map[string]string `json:"static_files,omitempty"` // 相对路径 → 内容标识
	BackendFunction string            `json:"backend_function,omitempty"`
	BackendURL      string            `json:"backend_url,omitempty"` // 直连后端地址，优先于函数网关
	APIPaths        []string          `json:"api_paths"`
	SPA             bool              `json:"spa"`
	Enabled         bool              `json:"enabled"`
	DeployedAt      time.Time         `json:"deployed_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// HasFrontend 判断是否有可服务的前端产物。
func (a *DeployedApp) HasFrontend() bool {
	return a.FrontendCID != "" || len(a.StaticFiles) > 0
}

// HasBackend 判断是否有可转发的后端目标。
func (a *DeployedApp) HasBackend() bool {
	return a.BackendFunction != "" || a.BackendURL != ""
}

// AliasDomain 返回 App 的别名域（声明值优先，否则按约定拼出）。
func (a *DeployedApp) AliasDomain() string {
	if a.Domain != "" {
		return a.Domain
	}
	return a.Name + AliasSuffix
}

// Normalize 应用默认值：API 前缀列表不允许为空。
func (a *DeployedApp) Normalize() {
	if len(a.APIPaths) == 0 {
		a.APIPaths = append([]string(nil), DefaultAPIPaths...)
	}
}
