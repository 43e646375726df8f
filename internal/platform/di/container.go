// internal/platform/di/container.go
package di

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	httpin "github.com/PraiseTechzw/solana-token-manager/internal/adapters/in/http"
	pgrepo "github.com/PraiseTechzw/solana-token-manager/internal/adapters/out/db"
	fsrepo "github.com/PraiseTechzw/solana-token-manager/internal/adapters/out/firestore"
	mailadapter "github.com/PraiseTechzw/solana-token-manager/internal/adapters/out/mail"
	memrepo "github.com/PraiseTechzw/solana-token-manager/internal/adapters/out/memory"
	usecase "github.com/PraiseTechzw/solana-token-manager/internal/application/usecase"
	"github.com/PraiseTechzw/solana-token-manager/internal/domain/ledger"
	tadom "github.com/PraiseTechzw/solana-token-manager/internal/domain/tokenAction"
	"github.com/PraiseTechzw/solana-token-manager/internal/domain/wallet"
	appcfg "github.com/PraiseTechzw/solana-token-manager/internal/infra/config"
	"github.com/PraiseTechzw/solana-token-manager/internal/infra/database"
	firestoreinfra "github.com/PraiseTechzw/solana-token-manager/internal/infra/firestore"
	solanainfra "github.com/PraiseTechzw/solana-token-manager/internal/infra/solana"
)

// Container は main.go / tokenctl から使う依存オブジェクトの束。
// main.go を極限まで薄くすることが目的。
type Container struct {
	Config *appcfg.Config

	// Clients (owned; Close-managed)
	Firestore    *firestoreinfra.ClientWrapper
	DB           *database.DB
	FirebaseAuth *firebaseauth.Client

	// Solana
	Wallet wallet.Wallet
	Ledger *solanainfra.LedgerClientSolana
	RPC    *solanainfra.JSONRPCClient

	// Usecases
	WorkflowUC  *usecase.TokenWorkflowUsecase
	PortfolioUC *usecase.PortfolioUsecase
	RunUC       *usecase.RunUsecase

	Journal tadom.RepositoryPort
}

// NewContainer wires everything from cfg.
// Firestore / Postgres / Firebase Auth are strict when configured.
// The wallet is best-effort: without a keypair the service runs "not connected".
func NewContainer(ctx context.Context, cfg *appcfg.Config) (*Container, error) {
	if cfg == nil {
		return nil, errors.New("di: config is nil")
	}
	c := &Container{Config: cfg}

	// ------------------------------------------------------------
	// 1. Solana clients
	// ------------------------------------------------------------
	c.RPC = solanainfra.NewJSONRPCClient(cfg.SolanaRPCURL, cfg.RPCRateLimit)
	c.Ledger = solanainfra.NewLedgerClientSolana(cfg.SolanaRPCURL, c.RPC, cfg.ConfirmTimeout)
	log.Printf("[di] solana rpc=%s commitment=%s rps=%.1f", c.RPC.Endpoint, cfg.Commitment, cfg.RPCRateLimit)

	// ------------------------------------------------------------
	// 2. Wallet (file → Secret Manager → disconnected)
	// ------------------------------------------------------------
	c.Wallet = loadWallet(ctx, cfg)

	// ------------------------------------------------------------
	// 3. 外部リソース (Firestore / Postgres / Firebase Auth)
	// ------------------------------------------------------------
	if cfg.NeedsFirestore() {
		fs, err := firestoreinfra.NewClient(ctx, cfg.FirestoreProjectID, cfg.FirestoreCredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("di: firestore: %w", err)
		}
		c.Firestore = fs
	}

	if cfg.RunStore == appcfg.RunStorePostgres {
		db, err := database.NewConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("di: postgres: %w", err)
		}
		c.DB = db
	}

	if cfg.AuthEnabled {
		authClient, err := newFirebaseAuth(ctx, cfg)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("di: firebase auth: %w", err)
		}
		c.FirebaseAuth = authClient
	}

	// ------------------------------------------------------------
	// 4. Repositories / locks / notifier
	// ------------------------------------------------------------
	journal, err := c.buildJournal(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Journal = journal

	var locker usecase.Locker
	switch cfg.LockBackend {
	case appcfg.RunStoreFirestore:
		locker = fsrepo.NewMintLockFS(c.Firestore.Client, cfg.LockTTL)
		log.Printf("[di] mint lock = firestore ttl=%s", cfg.LockTTL)
	default:
		locker = memrepo.NewKeyedMutex()
		log.Printf("[di] mint lock = in-process")
	}

	var notifier usecase.Notifier = mailadapter.LogNotifier{}
	if cfg.NotifyEnabled() {
		notifier = mailadapter.NewRunMailer(
			mailadapter.NewSendGridClient(cfg.SendGridAPIKey, ""),
			cfg.NotifyEmailFrom,
			cfg.NotifyEmailTo,
			cfg.Cluster,
		)
		log.Printf("[di] run notifier = sendgrid to=%s", cfg.NotifyEmailTo)
	}

	// ------------------------------------------------------------
	// 5. Usecases
	// ------------------------------------------------------------
	commitment := ledger.ParseCommitment(cfg.Commitment)

	c.WorkflowUC = usecase.NewTokenWorkflowUsecase(
		c.Ledger,
		c.Wallet,
		usecase.WithCommitment(commitment),
		usecase.WithStagedCreate(cfg.StagedCreate),
		usecase.WithOnChainMetadata(cfg.OnChainMetadata, cfg.MetadataURI),
		usecase.WithLocker(locker),
	)

	c.PortfolioUC = usecase.NewPortfolioUsecase(
		c.Wallet,
		solanainfra.NewOnchainWalletReader(c.RPC, string(commitment)),
		c.Ledger,
		solanainfra.NewHistoryReaderSolana(c.RPC, string(commitment)),
		c.Ledger,
		c.Ledger,
		cfg.Cluster,
	)

	c.RunUC = usecase.NewRunUsecase(
		c.WorkflowUC,
		c.Wallet,
		usecase.WithJournal(c.Journal),
		usecase.WithNotifier(notifier),
		usecase.WithRevertDelay(cfg.StatusRevertDelay),
		usecase.WithRunTimeout(cfg.RunTimeout),
	)

	return c, nil
}

func (c *Container) buildJournal(ctx context.Context) (tadom.RepositoryPort, error) {
	switch c.Config.RunStore {
	case appcfg.RunStoreFirestore:
		log.Printf("[di] run journal = firestore project=%s", c.Firestore.ProjectID)
		return fsrepo.NewTokenActionRepositoryFS(c.Firestore.Client), nil
	case appcfg.RunStorePostgres:
		repo := pgrepo.NewTokenActionRepositoryPG(c.DB.Client, "")
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("di: ensure token_actions schema: %w", err)
		}
		log.Printf("[di] run journal = postgres")
		return repo, nil
	default:
		log.Printf("[di] run journal = memory")
		return memrepo.NewTokenActionRepositoryMem(), nil
	}
}

// RouterDeps returns the HTTP dependencies.
func (c *Container) RouterDeps() httpin.RouterDeps {
	return httpin.RouterDeps{
		PortfolioUC:    c.PortfolioUC,
		RunUC:          c.RunUC,
		AllowedOrigins: c.Config.CORSAllowedOrigins,
		FirebaseAuth:   c.FirebaseAuth,
	}
}

// Close waits for in-flight runs, then releases clients.
func (c *Container) Close() {
	if c == nil {
		return
	}
	if c.RunUC != nil {
		c.RunUC.Drain()
	}
	if c.Firestore != nil {
		_ = c.Firestore.Close()
	}
	if c.DB != nil {
		_ = c.DB.Close()
	}
}

// ============================================================
// helpers
// ============================================================

func loadWallet(ctx context.Context, cfg *appcfg.Config) wallet.Wallet {
	if p := strings.TrimSpace(cfg.WalletKeypairPath); p != "" {
		acc, err := solanainfra.LoadKeypairFile(p)
		if err == nil {
			log.Printf("[di] wallet loaded from file pub=%s", ledger.MaskShort(acc.PublicKey.ToBase58()))
			return solanainfra.NewKeypairWallet(acc)
		}
		log.Printf("[di] WARN: load wallet keypair file failed: %v", err)
	}

	if s := strings.TrimSpace(cfg.SolanaWalletSecret); s != "" {
		acc, err := solanainfra.LoadKeypairSecret(ctx, cfg.GCPProjectID, s)
		if err == nil {
			log.Printf("[di] wallet loaded from secret manager pub=%s", ledger.MaskShort(acc.PublicKey.ToBase58()))
			return solanainfra.NewKeypairWallet(acc)
		}
		log.Printf("[di] WARN: load wallet secret failed: %v", err)
	}

	log.Printf("[di] WARN: no wallet configured (WALLET_KEYPAIR_PATH / SOLANA_WALLET_SECRET); running not connected")
	return solanainfra.DisconnectedWallet()
}

func newFirebaseAuth(ctx context.Context, cfg *appcfg.Config) (*firebaseauth.Client, error) {
	var opts []option.ClientOption
	if f := strings.TrimSpace(cfg.FirestoreCredentialsFile); f != "" {
		opts = append(opts, option.WithCredentialsFile(f))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirebaseProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase.NewApp: %w", err)
	}
	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase app.Auth: %w", err)
	}
	log.Printf("[di] Firebase Auth initialized project=%s", cfg.FirebaseProjectID)
	return authClient, nil
}
