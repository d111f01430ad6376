package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/stockfolio/internal/common"
	"github.com/bobmcallan/stockfolio/internal/interfaces"
	"github.com/bobmcallan/stockfolio/internal/models"
)

// LedgerStore is append-only. The table carries a trigger that rejects updates.
type LedgerStore struct {
	db     *sql.DB
	logger *common.Logger
}

func NewLedgerStore(db *sql.DB, logger *common.Logger) *LedgerStore {
	return &LedgerStore{db: db, logger: logger}
}

func insertEntry(ctx context.Context, ex execer, e *models.LedgerEntry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.ID == "" {
		e.ID = common.NewEntryIDAt(e.Timestamp)
	}
	_, err := ex.ExecContext(ctx, `
		INSERT INTO ledger (id, portfolio_id, symbol, side, quantity, price, total_amount, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.PortfolioID, e.Symbol, string(e.Side), e.Quantity, e.Price, e.TotalAmount, e.Timestamp.UnixNano())
	return err
}

func (s *LedgerStore) Append(ctx context.Context, entry *models.LedgerEntry) (string, error) {
	if !entry.Side.Valid() {
		return "", fmt.Errorf("%w: side %q", models.ErrInvalidInput, entry.Side)
	}
	if err := insertEntry(ctx, s.db, entry); err != nil {
		return "", fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return entry.ID, nil
}

func (s *LedgerStore) List(ctx context.Context, portfolioID string, q interfaces.LedgerQuery) ([]*models.LedgerEntry, error) {
	var sb strings.Builder
	args := []any{portfolioID}

	sb.WriteString(`SELECT id, portfolio_id, symbol, side, quantity, price, total_amount, ts FROM ledger WHERE portfolio_id = ?`)
	if q.Symbol != "" {
		sb.WriteString(` AND symbol = ?`)
		args = append(args, models.NormalizeSymbol(q.Symbol))
	}
	if q.Order == interfaces.OrderAsc {
		sb.WriteString(` ORDER BY ts ASC, id ASC`)
	} else {
		sb.WriteString(` ORDER BY ts DESC, id DESC`)
	}
	if q.Limit > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger: %w", err)
	}
	defer rows.Close()

	var out []*models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		var side string
		var ts int64
		if err := rows.Scan(&e.ID, &e.PortfolioID, &e.Symbol, &side, &e.Quantity, &e.Price, &e.TotalAmount, &ts); err != nil {
			return nil, err
		}
		e.Side = models.Side(side)
		e.Timestamp = fromNanos(ts)
		out = append(out, &e)
	}
	return out, rows.Err()
}
