package surrealdb

import (
	"context"
	"fmt"

	"github.com/bobmcallan/stockfolio/internal/common"
	"github.com/bobmcallan/stockfolio/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// portfolioSelectFields aliases portfolio_id to id for struct mapping.
const portfolioSelectFields = `portfolio_id AS id, portfolio_id, user_id, name, description,
	total_value, total_investment, created_at, refreshed_at`

type PortfolioStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewPortfolioStore(db *surrealdb.DB, logger *common.Logger) *PortfolioStore {
	return &PortfolioStore{db: db, logger: logger}
}

func portfolioRID(id string) surrealmodels.RecordID {
	return surrealmodels.NewRecordID("portfolio", id)
}

func (s *PortfolioStore) Get(ctx context.Context, id string) (*models.Portfolio, error) {
	sql := "SELECT " + portfolioSelectFields + " FROM $rid"
	results, err := surrealdb.Query[[]models.Portfolio](ctx, s.db, sql, map[string]any{"rid": portfolioRID(id)})
	if err != nil {
		return nil, fmt.Errorf("failed to get portfolio: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("portfolio %s: %w", id, models.ErrNotFound)
	}
	return &(*results)[0].Result[0], nil
}

func (s *PortfolioStore) Save(ctx context.Context, p *models.Portfolio) error {
	sql := `UPSERT $rid SET
		portfolio_id = $portfolio_id, user_id = $user_id, name = $name, description = $description,
		total_value = $total_value, total_investment = $total_investment,
		created_at = $created_at, refreshed_at = $refreshed_at`
	vars := map[string]any{
		"rid":              portfolioRID(p.ID),
		"portfolio_id":     p.ID,
		"user_id":          p.UserID,
		"name":             p.Name,
		"description":      p.Description,
		"total_value":      p.TotalValue,
		"total_investment": p.TotalInvestment,
		"created_at":       p.CreatedAt,
		"refreshed_at":     p.RefreshedAt,
	}
	if err := execQuery(ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to save portfolio: %w", err)
	}
	return nil
}

func (s *PortfolioStore) ListByUser(ctx context.Context, userID string) ([]*models.Portfolio, error) {
	sql := "SELECT " + portfolioSelectFields + " FROM portfolio WHERE user_id = $user_id ORDER BY created_at ASC, portfolio_id ASC"
	return s.list(ctx, sql, map[string]any{"user_id": userID})
}

func (s *PortfolioStore) ListAll(ctx context.Context) ([]*models.Portfolio, error) {
	sql := "SELECT " + portfolioSelectFields + " FROM portfolio ORDER BY user_id ASC, created_at ASC, portfolio_id ASC"
	return s.list(ctx, sql, nil)
}

func (s *PortfolioStore) list(ctx context.Context, sql string, vars map[string]any) ([]*models.Portfolio, error) {
	results, err := surrealdb.Query[[]models.Portfolio](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}

	var out []*models.Portfolio
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			out = append(out, &(*results)[0].Result[i])
		}
	}
	return out, nil
}

func (s *PortfolioStore) UpdateTotals(ctx context.Context, totals *models.Totals) error {
	sql := `UPDATE $rid SET total_value = $total_value, total_investment = $total_investment,
		refreshed_at = $refreshed_at RETURN AFTER`
	vars := map[string]any{
		"rid":              portfolioRID(totals.PortfolioID),
		"total_value":      totals.TotalValue,
		"total_investment": totals.TotalInvestment,
		"refreshed_at":     totals.RefreshedAt,
	}
	results, err := surrealdb.Query[[]map[string]any](ctx, s.db, sql, vars)
	if err != nil {
		return fmt.Errorf("failed to update totals: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return fmt.Errorf("portfolio %s: %w", totals.PortfolioID, models.ErrNotFound)
	}
	return nil
}
