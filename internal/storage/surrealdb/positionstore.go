package surrealdb

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/stockfolio/internal/common"
	"github.com/bobmcallan/stockfolio/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

const positionSelectFields = `portfolio_id, symbol, quantity, average_cost, invested_capital,
	current_value, created_at, updated_at, version`

// positionSet is shared by Upsert and the trade transaction.
const positionSet = `portfolio_id = $portfolio_id, symbol = $symbol, quantity = $quantity,
	average_cost = $average_cost, invested_capital = $invested_capital, current_value = $current_value,
	created_at = $created_at, updated_at = $updated_at, version = $version`

type PositionStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewPositionStore(db *surrealdb.DB, logger *common.Logger) *PositionStore {
	return &PositionStore{db: db, logger: logger}
}

// positionRID builds position:<portfolioID>::<symbol>.
func positionRID(portfolioID, symbol string) surrealmodels.RecordID {
	return surrealmodels.NewRecordID("position", portfolioID+"::"+symbol)
}

func positionVars(p *models.Position) map[string]any {
	return map[string]any{
		"pos_rid":          positionRID(p.PortfolioID, p.Symbol),
		"portfolio_id":     p.PortfolioID,
		"symbol":           p.Symbol,
		"quantity":         p.Quantity,
		"average_cost":     p.AverageCost,
		"invested_capital": p.InvestedCapital,
		"current_value":    p.CurrentValue,
		"created_at":       p.CreatedAt,
		"updated_at":       p.UpdatedAt,
		"version":          p.Version,
	}
}

func (s *PositionStore) Get(ctx context.Context, portfolioID, symbol string) (*models.Position, error) {
	sql := "SELECT " + positionSelectFields + " FROM $rid"
	results, err := surrealdb.Query[[]models.Position](ctx, s.db, sql, map[string]any{"rid": positionRID(portfolioID, symbol)})
	if err != nil {
		return nil, fmt.Errorf("failed to get position: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("position %s/%s: %w", portfolioID, symbol, models.ErrNotFound)
	}
	return &(*results)[0].Result[0], nil
}

func (s *PositionStore) Upsert(ctx context.Context, pos *models.Position) error {
	if pos.Quantity <= 0 {
		return fmt.Errorf("%w: position quantity must be positive", models.ErrInvalidInput)
	}
	sql := "UPSERT $pos_rid SET " + positionSet
	if err := execQuery(ctx, s.db, sql, positionVars(pos)); err != nil {
		return fmt.Errorf("failed to upsert position: %w", err)
	}
	return nil
}

func (s *PositionStore) Delete(ctx context.Context, portfolioID, symbol string) error {
	if _, err := surrealdb.Delete[models.Position](ctx, s.db, positionRID(portfolioID, symbol)); err != nil {
		return fmt.Errorf("failed to delete position: %w", err)
	}
	return nil
}

func (s *PositionStore) List(ctx context.Context, portfolioID string) ([]*models.Position, error) {
	sql := "SELECT " + positionSelectFields + " FROM position WHERE portfolio_id = $portfolio_id ORDER BY symbol ASC"
	results, err := surrealdb.Query[[]models.Position](ctx, s.db, sql, map[string]any{"portfolio_id": portfolioID})
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}

	var out []*models.Position
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			out = append(out, &(*results)[0].Result[i])
		}
	}
	return out, nil
}

// MarkToMarket is a single-statement update of current_value. It leaves the
// version alone so a refresh never conflicts with a trade commit.
func (s *PositionStore) MarkToMarket(ctx context.Context, portfolioID, symbol string, price float64) error {
	sql := `UPDATE $rid SET current_value = quantity * $price, updated_at = $now RETURN AFTER`
	vars := map[string]any{
		"rid":   positionRID(portfolioID, symbol),
		"price": price,
		"now":   time.Now(),
	}
	results, err := surrealdb.Query[[]map[string]any](ctx, s.db, sql, vars)
	if err != nil {
		return fmt.Errorf("failed to mark position: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return fmt.Errorf("position %s/%s: %w", portfolioID, symbol, models.ErrNotFound)
	}
	return nil
}
