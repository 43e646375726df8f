// internal/adapters/in/http/handlers/run_handler.go
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	usecase "github.com/PraiseTechzw/solana-token-manager/internal/application/usecase"
	"github.com/PraiseTechzw/solana-token-manager/internal/domain/wallet"
)

// RunHandler は /runs（ワークフロー実行状況）を担当します。
type RunHandler struct {
	uc *usecase.RunUsecase
}

func NewRunHandler(uc *usecase.RunUsecase) http.Handler {
	h := &RunHandler{uc: uc}

	r := chi.NewRouter()
	r.Get("/", h.recent)
	r.Get("/{id}", h.get)
	r.MethodNotAllowed(methodNotAllowed)
	r.NotFound(notFound)
	return r
}

// GET /runs/{id}
func (h *RunHandler) get(w http.ResponseWriter, r *http.Request) {
	v, err := h.uc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, usecase.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "run_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, v)
}

type runRecordResponse struct {
	ID         string `json:"id"`
	Action     string `json:"action"`
	Mint       string `json:"mint,omitempty"`
	Outcome    string `json:"outcome"`
	Reference  string `json:"reference,omitempty"`
	Signature  string `json:"signature,omitempty"`
	Warning    string `json:"warning,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Message    string `json:"message"`
	StartedAt  string `json:"startedAt"`
	FinishedAt string `json:"finishedAt"`
}

// GET /runs?limit=20 （journal に保存された実行履歴）
func (h *RunHandler) recent(w http.ResponseWriter, r *http.Request) {
	limit := parseIntDefault(r.URL.Query().Get("limit"), 0)

	recs, err := h.uc.Recent(r.Context(), limit)
	if err != nil {
		if errors.Is(err, wallet.ErrNotConnected) {
			writeError(w, http.StatusConflict, "not_connected")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]runRecordResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, runRecordResponse{
			ID:         rec.ID,
			Action:     string(rec.Action),
			Mint:       rec.Mint,
			Outcome:    string(rec.Outcome),
			Reference:  rec.Reference,
			Signature:  rec.Signature,
			Warning:    rec.Warning,
			Reason:     string(rec.Reason),
			Message:    rec.Message,
			StartedAt:  rec.StartedAt.UTC().Format(time.RFC3339),
			FinishedAt: rec.FinishedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}
