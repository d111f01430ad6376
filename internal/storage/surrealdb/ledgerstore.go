package surrealdb

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/stockfolio/internal/common"
	"github.com/bobmcallan/stockfolio/internal/interfaces"
	"github.com/bobmcallan/stockfolio/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// ledgerSelectFields aliases entry_id and executed_at onto the model's json names.
const ledgerSelectFields = `entry_id AS id, entry_id, portfolio_id, symbol, side, quantity, price,
	total_amount, executed_at AS timestamp, executed_at`

// ledgerCreate uses CREATE so an existing entry can never be overwritten.
const ledgerCreate = `CREATE $entry_rid SET
	entry_id = $entry_id, portfolio_id = $entry_portfolio_id, symbol = $entry_symbol, side = $side,
	quantity = $entry_quantity, price = $price, total_amount = $total_amount, executed_at = $executed_at`

// LedgerStore is append-only; it exposes no update or delete.
type LedgerStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewLedgerStore(db *surrealdb.DB, logger *common.Logger) *LedgerStore {
	return &LedgerStore{db: db, logger: logger}
}

func ledgerVars(e *models.LedgerEntry) map[string]any {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.ID == "" {
		e.ID = common.NewEntryIDAt(e.Timestamp)
	}
	return map[string]any{
		"entry_rid":          surrealmodels.NewRecordID("ledger", e.ID),
		"entry_id":           e.ID,
		"entry_portfolio_id": e.PortfolioID,
		"entry_symbol":       e.Symbol,
		"side":               string(e.Side),
		"entry_quantity":     e.Quantity,
		"price":              e.Price,
		"total_amount":       e.TotalAmount,
		"executed_at":        e.Timestamp,
	}
}

func (s *LedgerStore) Append(ctx context.Context, entry *models.LedgerEntry) (string, error) {
	if !entry.Side.Valid() {
		return "", fmt.Errorf("%w: side %q", models.ErrInvalidInput, entry.Side)
	}
	if err := execQuery(ctx, s.db, ledgerCreate, ledgerVars(entry)); err != nil {
		return "", fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return entry.ID, nil
}

func (s *LedgerStore) List(ctx context.Context, portfolioID string, q interfaces.LedgerQuery) ([]*models.LedgerEntry, error) {
	where := "portfolio_id = $portfolio_id"
	vars := map[string]any{"portfolio_id": portfolioID}
	if q.Symbol != "" {
		where += " AND symbol = $symbol"
		vars["symbol"] = models.NormalizeSymbol(q.Symbol)
	}

	// entry_id as tiebreaker; ULIDs sort in mint order
	orderBy := "ORDER BY executed_at DESC, entry_id DESC"
	if q.Order == interfaces.OrderAsc {
		orderBy = "ORDER BY executed_at ASC, entry_id ASC"
	}

	sql := "SELECT " + ledgerSelectFields + " FROM ledger WHERE " + where + " " + orderBy
	if q.Limit > 0 {
		sql += " LIMIT $limit"
		vars["limit"] = q.Limit
	}

	results, err := surrealdb.Query[[]models.LedgerEntry](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger: %w", err)
	}

	var out []*models.LedgerEntry
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			out = append(out, &(*results)[0].Result[i])
		}
	}
	return out, nil
}
