// internal/adapters/in/http/handlers/wallet_handler.go
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	usecase "github.com/PraiseTechzw/solana-token-manager/internal/application/usecase"
)

// WalletHandler は /wallet 関連のエンドポイントを担当します。
type WalletHandler struct {
	uc *usecase.PortfolioUsecase
}

// NewWalletHandler はHTTPハンドラを初期化します。
func NewWalletHandler(uc *usecase.PortfolioUsecase) http.Handler {
	h := &WalletHandler{uc: uc}

	r := chi.NewRouter()
	r.Get("/", h.get)
	r.Post("/airdrop", h.airdrop)
	r.MethodNotAllowed(methodNotAllowed)
	r.NotFound(notFound)
	return r
}

// GET /wallet
func (h *WalletHandler) get(w http.ResponseWriter, r *http.Request) {
	info, err := h.uc.Balance(r.Context())
	if err != nil {
		writePortfolioErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

type airdropRequest struct {
	SOL float64 `json:"sol"`
}

// POST /wallet/airdrop
func (h *WalletHandler) airdrop(w http.ResponseWriter, r *http.Request) {
	var req airdropRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	sig, err := h.uc.Airdrop(r.Context(), req.SOL)
	if err != nil {
		if sig != "" {
			// 送信済みだが確認できなかった
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error(), "signature": sig})
			return
		}
		writePortfolioErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"signature": sig})
}
