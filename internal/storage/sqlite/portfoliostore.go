package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bobmcallan/stockfolio/internal/common"
	"github.com/bobmcallan/stockfolio/internal/models"
)

type PortfolioStore struct {
	db     *sql.DB
	logger *common.Logger
}

func NewPortfolioStore(db *sql.DB, logger *common.Logger) *PortfolioStore {
	return &PortfolioStore{db: db, logger: logger}
}

const portfolioColumns = `id, user_id, name, description, total_value, total_investment, created_at, refreshed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPortfolio(row rowScanner) (*models.Portfolio, error) {
	var p models.Portfolio
	var created, refreshed int64
	if err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.TotalValue, &p.TotalInvestment, &created, &refreshed); err != nil {
		return nil, err
	}
	p.CreatedAt = fromNanos(created)
	p.RefreshedAt = fromNanos(refreshed)
	return &p, nil
}

func (s *PortfolioStore) Get(ctx context.Context, id string) (*models.Portfolio, error) {
	p, err := scanPortfolio(s.db.QueryRowContext(ctx, `SELECT `+portfolioColumns+` FROM portfolios WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("portfolio %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to select portfolio: %w", err)
	}
	return p, nil
}

func (s *PortfolioStore) Save(ctx context.Context, p *models.Portfolio) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO portfolios (`+portfolioColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			total_value = excluded.total_value,
			total_investment = excluded.total_investment,
			refreshed_at = excluded.refreshed_at`,
		p.ID, p.UserID, p.Name, p.Description, p.TotalValue, p.TotalInvestment, toNanos(p.CreatedAt), toNanos(p.RefreshedAt))
	if err != nil {
		return fmt.Errorf("failed to save portfolio: %w", err)
	}
	return nil
}

func (s *PortfolioStore) ListByUser(ctx context.Context, userID string) ([]*models.Portfolio, error) {
	return s.list(ctx, `SELECT `+portfolioColumns+` FROM portfolios WHERE user_id = ? ORDER BY created_at, id`, userID)
}

func (s *PortfolioStore) ListAll(ctx context.Context) ([]*models.Portfolio, error) {
	return s.list(ctx, `SELECT `+portfolioColumns+` FROM portfolios ORDER BY user_id, created_at, id`)
}

func (s *PortfolioStore) list(ctx context.Context, query string, args ...any) ([]*models.Portfolio, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}
	defer rows.Close()

	var out []*models.Portfolio
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PortfolioStore) UpdateTotals(ctx context.Context, totals *models.Totals) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE portfolios SET total_value = ?, total_investment = ?, refreshed_at = ? WHERE id = ?`,
		totals.TotalValue, totals.TotalInvestment, toNanos(totals.RefreshedAt), totals.PortfolioID)
	if err != nil {
		return fmt.Errorf("failed to update totals: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("portfolio %s: %w", totals.PortfolioID, models.ErrNotFound)
	}
	return nil
}
