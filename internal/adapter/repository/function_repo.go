package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jeju-platform/edge-engine/internal/domain"
	"github.com/jeju-platform/edge-engine/internal/port"
	"gorm.io/gorm"
)

var _ port.FunctionRepository = (*FunctionRepo)(nil)

type FunctionRepo struct {
	db *gorm.DB
}

func NewFunctionRepo(db *gorm.DB) *FunctionRepo {
	return &FunctionRepo{db: db}
}

func (r *FunctionRepo) Save(ctx context.Context, fn *domain.Function) error {
	m, err := functionToModel(fn)
	if err != nil {
		return err
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

func (r *FunctionRepo) FindByID(ctx context.Context, id string) (*domain.Function, error) {
	var m FunctionModel
	result := r.db.WithContext(ctx).First(&m, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.ErrFunctionNotFound
		}
		return nil, result.Error
	}
	return modelToFunction(&m)
}

func (r *FunctionRepo) FindAll(ctx context.Context, owner string) ([]*domain.Function, error) {
	q := r.db.WithContext(ctx)
	if owner != "" {
		q = q.Where("owner = ?", owner)
	}
	var models []FunctionModel
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	fns := make([]*domain.Function, 0, len(models))
	for i := range models {
		f, err := modelToFunction(&models[i])
		if err != nil {
			return nil, err
		}
		fns = append(fns, f)
	}
	return fns, nil
}

func (r *FunctionRepo) Update(ctx context.Context, fn *domain.Function) error {
	m, err := functionToModel(fn)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(m).Error
}

func (r *FunctionRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&FunctionModel{}, "id = ?", id).Error
}

func functionToModel(f *domain.Function) (*FunctionModel, error) {
	envsJSON, err := json.Marshal(f.Envs)
	if err != nil {
		return nil, err
	}
	return &FunctionModel{
		ID:          f.ID,
		Name:        f.Name,
		Owner:       f.Owner,
		CodeCID:     f.CodeCID,
		Entrypoint:  f.Entrypoint,
		MemoryMB:    f.MemoryMB,
		TimeoutMS:   f.TimeoutMS,
		Envs:        string(envsJSON),
		Status:      string(f.Status),
		Version:     f.Version,
		Invocations: f.Invocations,
		Errors:      f.Errors,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}, nil
}

func modelToFunction(m *FunctionModel) (*domain.Function, error) {
	var envs map[string]string
	if m.Envs != "" {
		if err := json.Unmarshal([]byte(m.Envs), &envs); err != nil {
			return nil, err
		}
	}
	return &domain.Function{
		ID:          m.ID,
		Name:        m.Name,
		Owner:       m.Owner,
		CodeCID:     m.CodeCID,
		Entrypoint:  m.Entrypoint,
		MemoryMB:    m.MemoryMB,
		TimeoutMS:   m.TimeoutMS,
		Envs:        envs,
		Status:      domain.FunctionStatus(m.Status),
		Version:     m.Version,
		Invocations: m.Invocations,
		Errors:      m.Errors,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}, nil
}
