// internal/adapters/in/http/handlers/token_handler.go
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	usecase "github.com/PraiseTechzw/solana-token-manager/internal/application/usecase"
)

// TokenHandler は /tokens 関連のエンドポイントを担当します。
//
//   - GET  /tokens                 保有トークン一覧
//   - POST /tokens                 CreateToken を開始 → 202 {runId}
//   - POST /tokens/{mint}/mint     MintMore を開始 → 202 {runId}
//   - POST /tokens/{mint}/send     SendToken を開始 → 202 {runId}
//
// 入力の検証は workflow 側で行う（エラー分類を一箇所に保つため、ここでは JSON の形だけを見る）。
type TokenHandler struct {
	portfolio *usecase.PortfolioUsecase
	runs      *usecase.RunUsecase
}

func NewTokenHandler(portfolio *usecase.PortfolioUsecase, runs *usecase.RunUsecase) http.Handler {
	h := &TokenHandler{portfolio: portfolio, runs: runs}

	r := chi.NewRouter()
	if portfolio != nil {
		r.Get("/", h.list)
	}
	if runs != nil {
		r.Post("/", h.create)
		r.Post("/{mint}/mint", h.mint)
		r.Post("/{mint}/send", h.send)
	}
	r.MethodNotAllowed(methodNotAllowed)
	r.NotFound(notFound)
	return r
}

// GET /tokens
func (h *TokenHandler) list(w http.ResponseWriter, r *http.Request) {
	tokens, err := h.portfolio.ListTokens(r.Context())
	if err != nil {
		writePortfolioErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": tokens})
}

type createTokenRequest struct {
	Name          string      `json:"name"`
	Symbol        string      `json:"symbol"`
	Decimals      int         `json:"decimals"`
	InitialSupply amountField `json:"initialSupply"`
}

// POST /tokens
func (h *TokenHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createTokenRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	id := h.runs.StartCreateToken(r.Context(), usecase.CreateTokenInput{
		Name:          req.Name,
		Symbol:        req.Symbol,
		Decimals:      req.Decimals,
		InitialSupply: string(req.InitialSupply),
	})
	writeAccepted(w, id)
}

type mintRequest struct {
	Amount amountField `json:"amount"`
}

// POST /tokens/{mint}/mint
func (h *TokenHandler) mint(w http.ResponseWriter, r *http.Request) {
	var req mintRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	id := h.runs.StartMintMore(r.Context(), usecase.MintMoreInput{
		MintAddress: chi.URLParam(r, "mint"),
		Amount:      string(req.Amount),
	})
	writeAccepted(w, id)
}

type sendRequest struct {
	Recipient string      `json:"recipient"`
	Amount    amountField `json:"amount"`
}

// POST /tokens/{mint}/send
func (h *TokenHandler) send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	id := h.runs.StartSendToken(r.Context(), usecase.SendTokenInput{
		MintAddress: chi.URLParam(r, "mint"),
		Recipient:   req.Recipient,
		Amount:      string(req.Amount),
	})
	writeAccepted(w, id)
}

func writeAccepted(w http.ResponseWriter, runID string) {
	w.Header().Set("Location", "/runs/"+runID)
	writeJSON(w, http.StatusAccepted, map[string]string{"runId": runID})
}
