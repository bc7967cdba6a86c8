package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"complaint-desk/internal/core/cache"
	"complaint-desk/internal/core/database"
	"complaint-desk/internal/core/validate"
	"complaint-desk/internal/domain"
	"complaint-desk/internal/repo"
)

const (
	typesCacheKey = "complaint:types:v1"
	typesCacheTTL = 5 * time.Minute
)

// TypeRegistry 投诉类别：读多写少，列表走 redis 缓存
type TypeRegistry struct {
	store *repo.Store
	cache *cache.Cache
	log   *zap.Logger
}

func NewTypeRegistry(store *repo.Store, c *cache.Cache, l *zap.Logger) *TypeRegistry {
	return &TypeRegistry{store: store, cache: c, log: l}
}

func (r *TypeRegistry) all(ctx context.Context) ([]domain.ComplaintType, error) {
	return cache.GetOrLoadJSON(r.cache, ctx, typesCacheKey, typesCacheTTL, r.store.Types.All)
}

func (r *TypeRegistry) List(ctx context.Context, includeInactive bool) ([]domain.ComplaintType, error) {
	all, err := r.all(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ComplaintType, 0, len(all))
	for _, t := range all {
		if t.Active || includeInactive {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *TypeRegistry) lookup(ctx context.Context, name string) (*domain.ComplaintType, error) {
	name = strings.TrimSpace(name)
	all, err := r.all(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if strings.EqualFold(all[i].Name, name) {
			return &all[i], nil
		}
	}
	return nil, nil
}

// Resolve 提交投诉用：只接受启用中的类别，返回规范名
func (r *TypeRegistry) Resolve(ctx context.Context, name string) (string, error) {
	t, err := r.lookup(ctx, name)
	if err != nil {
		return "", err
	}
	if t == nil || !t.Active {
		return "", domain.Errorf(domain.ErrInvalidType, "invalid complaint type %q", name)
	}
	return t.Name, nil
}

// Canonical 过滤用：停用的类别仍可匹配历史数据
func (r *TypeRegistry) Canonical(ctx context.Context, name string) (string, bool, error) {
	t, err := r.lookup(ctx, name)
	if err != nil || t == nil {
		return "", false, err
	}
	return t.Name, true, nil
}

type AddTypeInput struct {
	Name string `json:"name" validate:"required,min=2,max=64"`
}

func (r *TypeRegistry) Add(ctx context.Context, in AddTypeInput) (*domain.ComplaintType, error) {
	in.Name = strings.TrimSpace(in.Name)
	if items := validate.Struct(&in); len(items) > 0 {
		return nil, domain.NewValidationError(items...)
	}
	existing, err := r.lookup(ctx, in.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Active {
			return nil, domain.Errorf(domain.ErrConflict, "complaint type %q already exists", existing.Name)
		}
		if _, err := r.store.Types.SetActive(ctx, existing.Name, true); err != nil {
			return nil, err
		}
		r.invalidate(ctx)
		existing.Active = true
		return existing, nil
	}

	t := &domain.ComplaintType{Name: in.Name, Active: true}
	if err := r.store.Types.Create(ctx, t); err != nil {
		if database.IsDuplicateKey(err) {
			return nil, domain.Errorf(domain.ErrConflict, "complaint type %q already exists", in.Name)
		}
		return nil, err
	}
	r.invalidate(ctx)
	r.log.Info("complaint type added", zap.String("name", t.Name))
	return t, nil
}

func (r *TypeRegistry) Deactivate(ctx context.Context, name string) error {
	ok, err := r.store.Types.SetActive(ctx, name, false)
	if err != nil {
		return err
	}
	if !ok {
		return domain.Errorf(domain.ErrNotFound, "complaint type %q not found", name)
	}
	r.invalidate(ctx)
	r.log.Info("complaint type deactivated", zap.String("name", name))
	return nil
}

func (r *TypeRegistry) invalidate(ctx context.Context) {
	if err := r.cache.Del(ctx, typesCacheKey); err != nil && !errors.Is(err, context.Canceled) {
		r.log.Warn("invalidate complaint types cache", zap.Error(err))
	}
}
