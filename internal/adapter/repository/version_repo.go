package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jeju-platform/edge-engine/internal/domain"
	"github.com/jeju-platform/edge-engine/internal/port"
	"gorm.io/gorm"
)

var _ port.FunctionVersionRepository = (*VersionRepo)(nil)

type VersionRepo struct {
	db *gorm.DB
}

func NewVersionRepo(db *gorm.DB) *VersionRepo {
	return &VersionRepo{db: db}
}

func (r *VersionRepo) Save(ctx context.Context, v *domain.FunctionVersion) error {
	envsJSON, err := json.Marshal(v.Envs)
	if err != nil {
		return err
	}
	m := &FunctionVersionModel{
		FunctionID: v.FunctionID,
		Version:    v.Version,
		CodeCID:    v.CodeCID,
		Entrypoint: v.Entrypoint,
		MemoryMB:   v.MemoryMB,
		TimeoutMS:  v.TimeoutMS,
		Envs:       string(envsJSON),
		CreatedAt:  v.CreatedAt,
	}
	result := r.db.WithContext(ctx).Create(m)
	if result.Error != nil {
		if isUniqueConstraintError(result.Error) {
			return domain.ErrAlreadyExists
		}
		return result.Error
	}
	return nil
}

func (r *VersionRepo) Find(ctx context.Context, functionID string, version int) (*domain.FunctionVersion, error) {
	var m FunctionVersionModel
	result := r.db.WithContext(ctx).
		First(&m, "function_id = ? AND version = ?", functionID, version)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.ErrVersionNotFound
		}
		return nil, result.Error
	}
	return modelToVersion(&m)
}

func (r *VersionRepo) FindAll(ctx context.Context, functionID string) ([]*domain.FunctionVersion, error) {
	var models []FunctionVersionModel
	err := r.db.WithContext(ctx).
		Where("function_id = ?", functionID).
		Order("version ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	versions := make([]*domain.FunctionVersion, 0, len(models))
	for i := range models {
		v, err := modelToVersion(&models[i])
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, nil
}

func modelToVersion(m *FunctionVersionModel) (*domain.FunctionVersion, error) {
	var envs map[string]string
	if m.Envs != "" {
		if err := json.Unmarshal([]byte(m.Envs), &envs); err != nil {
			return nil, err
		}
	}
	return &domain.FunctionVersion{
		FunctionID: m.FunctionID,
		Version:    m.Version,
		CodeCID:    m.CodeCID,
		Entrypoint: m.Entrypoint,
		MemoryMB:   m.MemoryMB,
		TimeoutMS:  m.TimeoutMS,
		Envs:       envs,
		CreatedAt:  m.CreatedAt,
	}, nil
}
