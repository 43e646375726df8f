// internal/adapters/in/http/router.go
package httpin

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	usecase "github.com/PraiseTechzw/solana-token-manager/internal/application/usecase"

	// ハンドラ群
	"github.com/PraiseTechzw/solana-token-manager/internal/adapters/in/http/handlers"
	"github.com/PraiseTechzw/solana-token-manager/internal/adapters/in/http/middleware"
)

// RouterDeps collects all usecases (and other dependencies) injected from main.go.
type RouterDeps struct {
	PortfolioUC *usecase.PortfolioUsecase
	RunUC       *usecase.RunUsecase

	// CORS
	AllowedOrigins []string

	// ★ nil のときは認証なし（ローカル / devnet 用）
	FirebaseAuth *middleware.FirebaseAuthClient
}

// NewRouter sets up HTTP routing for all endpoints.
//
// チェーン順: CORS（外側）→ Recover → Auth → handlers
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.CORS(deps.AllowedOrigins))
	r.Use(middleware.Recover)

	// Health check (always on, no auth)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		if deps.FirebaseAuth != nil {
			auth := &middleware.AuthMiddleware{FirebaseAuth: deps.FirebaseAuth}
			r.Use(auth.Handler)
		}

		// 以降、Usecase が存在するものだけマウントする
		if deps.PortfolioUC != nil {
			r.Mount("/wallet", handlers.NewWalletHandler(deps.PortfolioUC))
			r.Mount("/history", handlers.NewHistoryHandler(deps.PortfolioUC))
		}

		if deps.PortfolioUC != nil || deps.RunUC != nil {
			r.Mount("/tokens", handlers.NewTokenHandler(deps.PortfolioUC, deps.RunUC))
		}

		if deps.RunUC != nil {
			r.Mount("/runs", handlers.NewRunHandler(deps.RunUC))
		}
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not_found"}`))
	})

	return r
}
