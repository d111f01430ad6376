package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bobmcallan/stockfolio/internal/common"
	"github.com/bobmcallan/stockfolio/internal/models"
)

type PositionStore struct {
	db     *sql.DB
	logger *common.Logger
}

func NewPositionStore(db *sql.DB, logger *common.Logger) *PositionStore {
	return &PositionStore{db: db, logger: logger}
}

const positionColumns = `portfolio_id, symbol, quantity, average_cost, invested_capital, current_value, created_at, updated_at, version`

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func scanPosition(row rowScanner) (*models.Position, error) {
	var p models.Position
	var created, updated int64
	if err := row.Scan(&p.PortfolioID, &p.Symbol, &p.Quantity, &p.AverageCost, &p.InvestedCapital, &p.CurrentValue, &created, &updated, &p.Version); err != nil {
		return nil, err
	}
	p.CreatedAt = fromNanos(created)
	p.UpdatedAt = fromNanos(updated)
	return &p, nil
}

func upsertPosition(ctx context.Context, ex execer, p *models.Position) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO positions (`+positionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (portfolio_id, symbol) DO UPDATE SET
			quantity = excluded.quantity,
			average_cost = excluded.average_cost,
			invested_capital = excluded.invested_capital,
			current_value = excluded.current_value,
			updated_at = excluded.updated_at,
			version = excluded.version`,
		p.PortfolioID, p.Symbol, p.Quantity, p.AverageCost, p.InvestedCapital, p.CurrentValue,
		toNanos(p.CreatedAt), toNanos(p.UpdatedAt), p.Version)
	return err
}

func (s *PositionStore) Get(ctx context.Context, portfolioID, symbol string) (*models.Position, error) {
	p, err := scanPosition(s.db.QueryRowContext(ctx,
		`SELECT `+positionColumns+` FROM positions WHERE portfolio_id = ? AND symbol = ?`, portfolioID, symbol))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("position %s/%s: %w", portfolioID, symbol, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to select position: %w", err)
	}
	return p, nil
}

func (s *PositionStore) Upsert(ctx context.Context, pos *models.Position) error {
	if pos.Quantity <= 0 {
		return fmt.Errorf("%w: position quantity must be positive", models.ErrInvalidInput)
	}
	if err := upsertPosition(ctx, s.db, pos); err != nil {
		return fmt.Errorf("failed to upsert position: %w", err)
	}
	return nil
}

func (s *PositionStore) Delete(ctx context.Context, portfolioID, symbol string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM positions WHERE portfolio_id = ? AND symbol = ?`, portfolioID, symbol); err != nil {
		return fmt.Errorf("failed to delete position: %w", err)
	}
	return nil
}

func (s *PositionStore) List(ctx context.Context, portfolioID string) ([]*models.Position, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+positionColumns+` FROM positions WHERE portfolio_id = ? ORDER BY symbol`, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	defer rows.Close()

	var out []*models.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkToMarket only touches current_value and updated_at. The version is left
// alone so a refresh never makes a concurrent trade fail its commit.
func (s *PositionStore) MarkToMarket(ctx context.Context, portfolioID, symbol string, price float64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE positions
		SET current_value = quantity * ?, updated_at = ?
		WHERE portfolio_id = ? AND symbol = ?`,
		price, time.Now().UnixNano(), portfolioID, symbol)
	if err != nil {
		return fmt.Errorf("failed to mark position: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("position %s/%s: %w", portfolioID, symbol, models.ErrNotFound)
	}
	return nil
}
