package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bobmcallan/stockfolio/internal/common"
	"github.com/bobmcallan/stockfolio/internal/models"
)

// handleMarketQuote handles GET and PUT on /api/market/quote/{symbol}.
func (s *Server) handleMarketQuote(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodPut) {
		return
	}
	symbol := PathParam(r, "/api/market/quote/", "")
	if symbol == "" {
		WriteError(w, http.StatusBadRequest, "symbol is required in path")
		return
	}

	if r.Method == http.MethodPut {
		if common.ResolveUserID(r.Context()) == "" {
			WriteServiceError(w, models.ErrUnauthenticated)
			return
		}
		var req struct {
			Name          string  `json:"name"`
			CurrentPrice  float64 `json:"current_price"`
			PreviousClose float64 `json:"previous_close"`
			MarketCap     float64 `json:"market_cap"`
			Volume        float64 `json:"volume"`
		}
		if !DecodeJSON(w, r, &req) {
			return
		}
		stock, err := s.app.QuoteService.UpdateQuote(r.Context(), &models.Stock{
			Symbol:        symbol,
			Name:          req.Name,
			CurrentPrice:  req.CurrentPrice,
			PreviousClose: req.PreviousClose,
			MarketCap:     req.MarketCap,
			Volume:        req.Volume,
		})
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, newStockView(stock))
		return
	}

	stock, err := s.app.QuoteService.GetQuote(r.Context(), symbol)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, newStockView(stock))
}

// handleMarketQuotes handles GET /api/market/quotes?symbols=AAPL,MSFT.
func (s *Server) handleMarketQuotes(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	raw := r.URL.Query().Get("symbols")
	if raw == "" {
		WriteError(w, http.StatusBadRequest, "symbols query parameter is required")
		return
	}

	stocks, err := s.app.QuoteService.GetQuotes(r.Context(), strings.Split(raw, ","))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	views := make([]stockView, len(stocks))
	for i, st := range stocks {
		views[i] = newStockView(st)
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"quotes": views,
	})
}

// handleWatchlist handles GET (list) and POST (add) on /api/watchlist.
func (s *Server) handleWatchlist(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodPost) {
		return
	}

	if r.Method == http.MethodPost {
		var req struct {
			Symbol string `json:"symbol"`
		}
		if !DecodeJSON(w, r, &req) {
			return
		}
		item, err := s.app.WatchlistService.Add(r.Context(), req.Symbol)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusCreated, item)
		return
	}

	watched, err := s.app.WatchlistService.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	views := make([]watchedView, len(watched))
	for i, ws := range watched {
		views[i] = watchedView{
			stockView: newStockView(&ws.Stock),
			AddedAt:   ws.AddedAt.Format(time.RFC3339),
		}
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"watchlist": views,
	})
}

// handleWatchlistItem handles DELETE /api/watchlist/{symbol}.
func (s *Server) handleWatchlistItem(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}
	symbol := PathParam(r, "/api/watchlist/", "")
	if err := s.app.WatchlistService.Remove(r.Context(), symbol); err != nil {
		s.writeError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "removed", "symbol": models.NormalizeSymbol(symbol)})
}
