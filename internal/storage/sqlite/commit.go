package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bobmcallan/stockfolio/internal/interfaces"
	"github.com/bobmcallan/stockfolio/internal/models"
)

// CommitTrade writes the position change and ledger entry in one
// transaction, guarded by the position version the trade was computed from.
// Only the transaction handle is used inside; the pool holds one connection.
func (m *Manager) CommitTrade(ctx context.Context, c *interfaces.TradeCommit) error {
	if c.Entry == nil {
		return fmt.Errorf("%w: trade commit without ledger entry", models.ErrInvalidInput)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin trade: %w", err)
	}
	defer tx.Rollback()

	var current int64
	err = tx.QueryRowContext(ctx,
		`SELECT version FROM positions WHERE portfolio_id = ? AND symbol = ?`, c.PortfolioID, c.Symbol).Scan(&current)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		current = 0
	case err != nil:
		return fmt.Errorf("failed to read position version: %w", err)
	}
	if current != c.ExpectedVersion {
		return fmt.Errorf("%w: %s/%s at version %d, expected %d", models.ErrConflict, c.PortfolioID, c.Symbol, current, c.ExpectedVersion)
	}

	if c.Position != nil {
		if err := upsertPosition(ctx, tx, c.Position); err != nil {
			return fmt.Errorf("failed to write position: %w", err)
		}
	} else {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM positions WHERE portfolio_id = ? AND symbol = ?`, c.PortfolioID, c.Symbol); err != nil {
			return fmt.Errorf("failed to delete position: %w", err)
		}
	}

	if err := insertEntry(ctx, tx, c.Entry); err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit trade: %w", err)
	}
	return nil
}
