package repository

import (
	"context"
	"encoding/json"

	"github.com/jeju-platform/edge-engine/internal/domain"
	"github.com/jeju-platform/edge-engine/internal/port"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ port.RegistryStore = (*AppStore)(nil)

// AppStore 是注册表的关系库后端：一行一个 App，按 name upsert。
type AppStore struct {
	db *gorm.DB
}

func NewAppStore(db *gorm.DB) *AppStore {
	return &AppStore{db: db}
}

func (s *AppStore) Name() string { return "postgres" }

func (s *AppStore) Load(ctx context.Context) ([]*domain.DeployedApp, error) {
	var models []DeployedAppModel
	if err := s.db.WithContext(ctx).Find(&models).Error; err != nil {
		return nil, err
	}
	apps := make([]*domain.DeployedApp, 0, len(models))
	for i := range models {
		a, err := modelToApp(&models[i])
		if err != nil {
			return nil, err
		}
		apps = append(apps, a)
	}
	return apps, nil
}

// SaveAll 逐行 upsert。只覆盖 UpdatedAt 更新的行由调用方的合并策略保证，
// 这里按主键无条件写入（last-write-wins）。
func (s *AppStore) SaveAll(ctx context.Context, apps []*domain.DeployedApp) error {
	for _, a := range apps {
		m, err := appToModel(a)
		if err != nil {
			return err
		}
		err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			UpdateAll: true,
		}).Create(m).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *AppStore) Remove(ctx context.Context, name string) error {
	return s.db.WithContext(ctx).Delete(&DeployedAppModel{}, "name = ?", name).Error
}

func (s *AppStore) Available(ctx context.Context) bool {
	sqlDB, err := s.db.DB()
	if err != nil {
		return false
	}
	return sqlDB.PingContext(ctx) == nil
}

func appToModel(a *domain.DeployedApp) (*DeployedAppModel, error) {
	staticJSON, err := json.Marshal(a.StaticFiles)
	if err != nil {
		return nil, err
	}
	pathsJSON, err := json.Marshal(a.APIPaths)
	if err != nil {
		return nil, err
	}
	return &DeployedAppModel{
		Name:            a.Name,
		Domain:          a.Domain,
		FrontendCID:     a.FrontendCID,
		StaticFiles:     string(staticJSON),
		BackendFunction: a.BackendFunction,
		BackendURL:      a.BackendURL,
		APIPaths:        string(pathsJSON),
		SPA:             a.SPA,
		Enabled:         a.Enabled,
		DeployedAt:      a.DeployedAt,
		UpdatedAt:       a.UpdatedAt,
	}, nil
}

func modelToApp(m *DeployedAppModel) (*domain.DeployedApp, error) {
	var staticFiles map[string]string
	if m.StaticFiles != "" {
		if err := json.Unmarshal([]byte(m.StaticFiles), &staticFiles); err != nil {
			return nil, err
		}
	}
	var apiPaths []string
	if m.APIPaths != "" {
		if err := json.Unmarshal([]byte(m.APIPaths), &apiPaths); err != nil {
			return nil, err
		}
	}
	app := &domain.DeployedApp{
		Name:            m.Name,
		Domain:          m.Domain,
		FrontendCID:     m.FrontendCID,
		StaticFiles:     staticFiles,
		BackendFunction: m.BackendFunction,
		BackendURL:      m.BackendURL,
		APIPaths:        apiPaths,
		SPA:             m.SPA,
		Enabled:         m.Enabled,
		DeployedAt:      m.DeployedAt,
		UpdatedAt:       m.UpdatedAt,
	}
	app.Normalize()
	return app, nil
}
