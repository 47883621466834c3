package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"carteira/pkg/carteira"
)

// NewRouter builds the HTTP API router.
func NewRouter(core *carteira.Core) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLoggingMiddleware(core.Logger()))
	r.Use(recoveryLoggingMiddleware(core.Logger()))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	h := &handler{core: core, logger: core.Logger()}

	r.Get("/api/health", h.health)

	// Positions
	r.Get("/api/positions", h.getPositions)
	r.Get("/api/positions/{id}", h.getPosition)
	r.Get("/api/positions/{id}/entries", h.getEntries)
	r.Post("/api/positions/{id}/recompute", h.recomputePosition)
	r.Post("/api/positions/{id}/net-balance", h.setNetBalance)
	r.Get("/api/positions/{id}/net-balances", h.getNetBalances)
	r.Post("/api/positions/{id}/earnings", h.addEarning)
	r.Get("/api/positions/{id}/earnings", h.getEarnings)

	// Ledger entries
	r.Post("/api/entries", h.createEntry)
	r.Post("/api/entries/batch", h.createEntries)
	r.Put("/api/entries/{id}", h.updateEntry)
	r.Delete("/api/entries/{id}", h.deleteEntry)

	// Crossing
	r.Get("/api/crossing", h.getCrossing)
	r.Post("/api/crossing/advice", h.getCrossingAdvice)

	// Target allocations
	r.Get("/api/allocations", h.getAllocations)
	r.Post("/api/allocations", h.setAllocation)
	r.Delete("/api/allocations/{id}", h.deleteAllocation)
	r.Get("/api/allocations/removed", h.getRemovedAllocations)

	// Accounts
	r.Get("/api/accounts", h.getAccounts)
	r.Post("/api/accounts", h.addAccount)
	r.Delete("/api/accounts/{id}", h.deleteAccount)

	// Asset registry
	r.Get("/api/equities", h.getEquities)
	r.Post("/api/equities", h.addEquity)
	r.Put("/api/equities/{id}/price", h.updateEquityPrice)
	r.Get("/api/instruments", h.getInstruments)
	r.Post("/api/instruments", h.addInstrument)
	r.Put("/api/instruments/{id}/price", h.updateInstrumentPrice)

	// History
	r.Get("/api/operation-logs", h.getOperationLogs)
	r.Get("/api/portfolio-history", h.getPortfolioHistory)

	return r
}

type handler struct {
	core   *carteira.Core
	logger *slog.Logger
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Code: status, Message: message})
}
