// internal/adapters/in/http/handlers/history_handler.go
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	usecase "github.com/PraiseTechzw/solana-token-manager/internal/application/usecase"
)

type HistoryHandler struct {
	uc *usecase.PortfolioUsecase
}

func NewHistoryHandler(uc *usecase.PortfolioUsecase) http.Handler {
	h := &HistoryHandler{uc: uc}

	r := chi.NewRouter()
	r.Get("/", h.list)
	r.MethodNotAllowed(methodNotAllowed)
	r.NotFound(notFound)
	return r
}

// GET /history?limit=10
func (h *HistoryHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := parseIntDefault(r.URL.Query().Get("limit"), usecase.DefaultHistoryLimit)

	entries, err := h.uc.History(r.Context(), limit)
	if err != nil {
		writePortfolioErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": entries})
}
