package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Драйвер Postgres
	"github.com/xela07ax/site-overview/internal/domain"
)

// SiteRepo — реестр сайтов в Postgres (таблица sites)
type SiteRepo struct {
	db *sql.DB
}

// NewSiteRepo создает новый экземпляр репозитория. Соединение проверяем через Ping в main.
func NewSiteRepo(connString string, maxConns, minConns int) (*SiteRepo, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(minConns)
	db.SetConnMaxLifetime(5 * time.Minute)
	return &SiteRepo{db: db}, nil
}

// Sites возвращает все сайты, уже в порядке вывода (alias, id)
func (r *SiteRepo) Sites(ctx context.Context) ([]domain.Site, error) {
	query := `
		SELECT id, alias, address, transport, disabled, is_local, COALESCE(token, '')
		FROM sites ORDER BY alias, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list sites: %w", err)
	}
	defer rows.Close()

	var out []domain.Site
	for rows.Next() {
		var s domain.Site
		var transport string
		if err := rows.Scan(&s.ID, &s.Alias, &s.Address, &transport, &s.Disabled, &s.Local, &s.Token); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan site: %w", err)
		}
		s.Transport = domain.Transport(transport)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to iterate sites: %w", err)
	}
	return out, nil
}

// Site ищет один сайт по id
func (r *SiteRepo) Site(ctx context.Context, id string) (domain.Site, error) {
	query := `
		SELECT id, alias, address, transport, disabled, is_local, COALESCE(token, '')
		FROM sites WHERE id = $1`

	var s domain.Site
	var transport string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.Alias, &s.Address, &transport, &s.Disabled, &s.Local, &s.Token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Site{}, fmt.Errorf("postgres: %w: %s", domain.ErrSiteNotFound, id)
		}
		return domain.Site{}, fmt.Errorf("postgres: failed to get site %s: %w", id, err)
	}
	s.Transport = domain.Transport(transport)
	return s, nil
}

// SetDisabled включает/выключает опрос сайта
func (r *SiteRepo) SetDisabled(ctx context.Context, id string, disabled bool) error {
	query := `UPDATE sites SET disabled = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, disabled, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to update site: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("postgres: %w: %s", domain.ErrSiteNotFound, id)
	}
	return nil
}

// Ping проверяет доступность базы при старте
func (r *SiteRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SiteRepo) Close() error {
	return r.db.Close()
}
