// Package sites — реестр сайтов: статический (из конфига) или из Postgres.
package sites

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/xela07ax/site-overview/internal/domain"
)

// Source — откуда берется список сайтов (конфиг, Postgres)
type Source interface {
	Sites(ctx context.Context) ([]domain.Site, error)
}

// finder — источник, умеющий искать сайт сам (Postgres)
type finder interface {
	Site(ctx context.Context, id string) (domain.Site, error)
}

// Registry отдает сайты в порядке вывода виджета независимо от источника
type Registry struct {
	src Source
}

func NewRegistry(src Source) *Registry {
	return &Registry{src: src}
}

// Sites — копия списка, отсортированная по alias (при равенстве по id)
func (r *Registry) Sites(ctx context.Context) ([]domain.Site, error) {
	list, err := r.src.Sites(ctx)
	if err != nil {
		return nil, fmt.Errorf("sites: %w", err)
	}
	return Sorted(list), nil
}

// Site ищет сайт по id; отсутствие — domain.ErrSiteNotFound
func (r *Registry) Site(ctx context.Context, id string) (domain.Site, error) {
	if f, ok := r.src.(finder); ok {
		s, err := f.Site(ctx, id)
		if err != nil {
			return domain.Site{}, fmt.Errorf("sites: %w", err)
		}
		return s, nil
	}
	list, err := r.src.Sites(ctx)
	if err != nil {
		return domain.Site{}, fmt.Errorf("sites: %w", err)
	}
	for _, s := range list {
		if s.ID == id {
			return s, nil
		}
	}
	return domain.Site{}, fmt.Errorf("sites: %w: %s", domain.ErrSiteNotFound, id)
}

// Sorted возвращает новый слайс в порядке alias, id
func Sorted(list []domain.Site) []domain.Site {
	out := slices.Clone(list)
	slices.SortStableFunc(out, func(a, b domain.Site) int {
		if c := strings.Compare(a.Alias, b.Alias); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// SingleLocalSite — инсталляция из одного локального сайта: виджет сразу показывает его хосты
func SingleLocalSite(list []domain.Site) (domain.Site, bool) {
	if len(list) == 1 && list[0].Local {
		return list[0], true
	}
	return domain.Site{}, false
}

// Static — реестр из секции sites конфига
type Static []domain.Site

// NewStatic проверяет записи конфига: id обязателен и уникален
func NewStatic(list []domain.Site) (Static, error) {
	seen := make(map[string]struct{}, len(list))
	for i, s := range list {
		if s.ID == "" {
			return nil, fmt.Errorf("sites: entry %d has no id", i)
		}
		if _, dup := seen[s.ID]; dup {
			return nil, fmt.Errorf("sites: duplicate site id %q", s.ID)
		}
		seen[s.ID] = struct{}{}
		if s.Alias == "" {
			list[i].Alias = s.ID
		}
	}
	return Static(list), nil
}

func (s Static) Sites(context.Context) ([]domain.Site, error) {
	return slices.Clone(s), nil
}
