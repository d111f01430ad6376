package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/stockfolio/internal/app"
	"github.com/bobmcallan/stockfolio/internal/common"
	"github.com/bobmcallan/stockfolio/internal/models"
)

func newTestApp(t *testing.T) *app.App {
	t.Helper()
	cfg := common.NewDefaultConfig()
	cfg.Storage.Path = filepath.Join(t.TempDir(), "stockfolio.db")
	a, err := app.NewAppWithConfig(cfg, common.NewSilentLogger())
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestVerifyLedger(t *testing.T) {
	a := newTestApp(t)
	ctx := common.WithUserID(context.Background(), "alice")

	p, err := a.PortfolioService.CreatePortfolio(ctx, "Main", "")
	require.NoError(t, err)
	_, err = a.TradeService.AddHolding(ctx, p.ID, "AAPL", 10, 100)
	require.NoError(t, err)
	_, err = a.TradeService.SellHolding(ctx, p.ID, "AAPL", 4, 120)
	require.NoError(t, err)

	found, err := verifyLedger(context.Background(), a.Storage, a.Engine, "", 1e-9)
	require.NoError(t, err)
	assert.Empty(t, found)

	// Tamper with the stored position behind the ledger's back.
	pos, err := a.Storage.PositionStore().Get(context.Background(), p.ID, "AAPL")
	require.NoError(t, err)
	pos.Quantity = 7
	require.NoError(t, a.Storage.PositionStore().Upsert(context.Background(), pos))

	found, err = verifyLedger(context.Background(), a.Storage, a.Engine, p.ID, 1e-9)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "quantity", found[0].Field)
	assert.Equal(t, 7.0, found[0].Stored)
	assert.Equal(t, 6.0, found[0].Replayed)

	var buf bytes.Buffer
	renderDiscrepancies(&buf, found)
	assert.Contains(t, buf.String(), "AAPL")
	assert.Contains(t, buf.String(), "quantity")

	_, err = verifyLedger(context.Background(), a.Storage, a.Engine, "missing", 1e-9)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAsOwner(t *testing.T) {
	a := newTestApp(t)
	p, err := a.PortfolioService.CreatePortfolio(common.WithUserID(context.Background(), "bob"), "Side", "")
	require.NoError(t, err)

	ctx, err := asOwner(context.Background(), a.Storage, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob", common.ResolveUserID(ctx))

	var buf bytes.Buffer
	require.NoError(t, a.PortfolioService.ExportCSV(ctx, p.ID, &buf))
	assert.True(t, strings.HasPrefix(buf.String(), "id,timestamp"))
}

func TestRenderHoldings(t *testing.T) {
	var buf bytes.Buffer
	renderHoldings(&buf, []*models.Position{
		{Symbol: "MSFT", Quantity: 3, AverageCost: 300, InvestedCapital: 900, CurrentValue: 1136.55, Version: 2},
	})
	out := buf.String()
	assert.Contains(t, out, "MSFT")
	assert.Contains(t, out, "1136.55")
	assert.Contains(t, out, "236.55")
}

func TestConfigInitAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stockfolio.toml")

	run := func(args ...string) (string, error) {
		root := newRootCmd()
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetErr(&out)
		root.SetArgs(args)
		err := root.Execute()
		return out.String(), err
	}

	out, err := run("config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote")
	_, err = os.Stat(path)
	require.NoError(t, err)

	_, err = run("config", "init", path)
	assert.Error(t, err, "refuses to overwrite")

	out, err = run("--config", path, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "ok")

	out, err = run("--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "****")

	out, err = run("version")
	require.NoError(t, err)
	assert.Contains(t, out, "stockfolio")
}
