package portfolio

import (
	"fmt"
	"io"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/bobmcallan/stockfolio/internal/models"
)

type ledgerRow struct {
	ID          string  `csv:"id"`
	Timestamp   string  `csv:"timestamp"`
	Symbol      string  `csv:"symbol"`
	Side        string  `csv:"side"`
	Quantity    int64   `csv:"quantity"`
	Price       float64 `csv:"price"`
	TotalAmount float64 `csv:"total_amount"`
}

func toLedgerRows(entries []*models.LedgerEntry) []*ledgerRow {
	rows := make([]*ledgerRow, len(entries))
	for i, e := range entries {
		rows[i] = &ledgerRow{
			ID:          e.ID,
			Timestamp:   e.Timestamp.UTC().Format(time.RFC3339Nano),
			Symbol:      e.Symbol,
			Side:        string(e.Side),
			Quantity:    e.Quantity,
			Price:       e.Price,
			TotalAmount: e.TotalAmount,
		}
	}
	return rows
}

// WriteLedgerCSV writes entries as CSV with a header row.
func WriteLedgerCSV(w io.Writer, entries []*models.LedgerEntry) error {
	rows := toLedgerRows(entries)
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("failed to write ledger csv: %w", err)
	}
	return nil
}
