package server

import "github.com/bobmcallan/stockfolio/internal/models"

type portfolioView struct {
	*models.Portfolio
	GainLoss    float64 `json:"gain_loss"`
	GainLossPct float64 `json:"gain_loss_pct"`
}

func newPortfolioView(p *models.Portfolio) portfolioView {
	return portfolioView{
		Portfolio:   p,
		GainLoss:    p.GainLoss(),
		GainLossPct: p.GainLossPct(),
	}
}

type holdingView struct {
	*models.Position
	CurrentPrice float64 `json:"current_price"`
	GainLoss     float64 `json:"gain_loss"`
	GainLossPct  float64 `json:"gain_loss_pct"`
}

func newHoldingView(p *models.Position) holdingView {
	return holdingView{
		Position:     p,
		CurrentPrice: p.MarkPrice(),
		GainLoss:     p.GainLoss(),
		GainLossPct:  p.GainLossPct(),
	}
}

type stockView struct {
	*models.Stock
	Change    float64 `json:"change"`
	ChangePct float64 `json:"change_pct"`
}

func newStockView(s *models.Stock) stockView {
	return stockView{
		Stock:     s,
		Change:    s.Change(),
		ChangePct: s.ChangePct(),
	}
}

type watchedView struct {
	stockView
	AddedAt string `json:"added_at"`
}
