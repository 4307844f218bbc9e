package registry

import (
	"fmt"
	"os"

	"github.com/jeju-platform/edge-engine/internal/domain"
	"gopkg.in/yaml.v3"
)

// devApp 是本地开发注册表文件里的一项，只含路由需要的字段。
type devApp struct {
	Name        string            `yaml:"name"`
	FrontendCID string            `yaml:"frontend_cid"`
	StaticFiles map[string]string `yaml:"static_files"`
	BackendURL  string            `yaml:"backend_url"`
	APIPaths    []string          `yaml:"api_paths"`
	SPA         bool              `yaml:"spa"`
}

type devFile struct {
	Apps []devApp `yaml:"apps"`
}

// LoadDevApps 读取本地开发注册表 YAML，合成临时 DeployedApp。
// 这些应用只存在于进程内，不参与持久化与协调。
func LoadDevApps(path string) ([]*domain.DeployedApp, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dev registry: %w", err)
	}
	return parseDevApps(data)
}

func parseDevApps(data []byte) ([]*domain.DeployedApp, error) {
	var f devFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse dev registry: %w", err)
	}
	apps := make([]*domain.DeployedApp, 0, len(f.Apps))
	for _, d := range f.Apps {
		a := &domain.DeployedApp{
			Name:        d.Name,
			FrontendCID: d.FrontendCID,
			StaticFiles: d.StaticFiles,
			BackendURL:  d.BackendURL,
			APIPaths:    d.APIPaths,
			SPA:         d.SPA,
			Enabled:     true,
		}
		a.Normalize()
		apps = append(apps, a)
	}
	return apps, nil
}
