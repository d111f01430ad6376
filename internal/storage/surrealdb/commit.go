package surrealdb

import (
	"context"
	"fmt"
	"maps"
	"strings"

	"github.com/bobmcallan/stockfolio/internal/interfaces"
	"github.com/bobmcallan/stockfolio/internal/models"
)

const conflictMarker = "stockfolio: position version conflict"

// CommitTrade runs the version check, the position write and the ledger
// append as one SurrealQL transaction. THROW cancels the whole transaction.
func (m *Manager) CommitTrade(ctx context.Context, c *interfaces.TradeCommit) error {
	if c.Entry == nil {
		return fmt.Errorf("%w: trade commit without ledger entry", models.ErrInvalidInput)
	}

	var sb strings.Builder
	sb.WriteString("BEGIN TRANSACTION;\n")
	sb.WriteString("LET $cur = (SELECT VALUE version FROM $pos_rid)[0] ?? 0;\n")
	sb.WriteString("IF $cur != $expected { THROW $conflict };\n")
	if c.Position != nil {
		sb.WriteString("UPSERT $pos_rid SET " + positionSet + ";\n")
	} else {
		sb.WriteString("DELETE $pos_rid;\n")
	}
	sb.WriteString(ledgerCreate + ";\n")
	sb.WriteString("COMMIT TRANSACTION;")

	vars := ledgerVars(c.Entry)
	if c.Position != nil {
		maps.Copy(vars, positionVars(c.Position))
	} else {
		vars["pos_rid"] = positionRID(c.PortfolioID, c.Symbol)
	}
	vars["expected"] = c.ExpectedVersion
	vars["conflict"] = conflictMarker

	if err := execQuery(ctx, m.db, sb.String(), vars); err != nil {
		if strings.Contains(err.Error(), conflictMarker) {
			return fmt.Errorf("%w: %s/%s expected version %d", models.ErrConflict, c.PortfolioID, c.Symbol, c.ExpectedVersion)
		}
		return fmt.Errorf("failed to commit trade: %w", err)
	}
	return nil
}
