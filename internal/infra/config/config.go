// internal/infra/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config はアプリケーション全体の設定を保持します。
// 値は環境変数 → config.yaml → デフォルトの順で解決されます。
type Config struct {
	Port string

	// Solana
	SolanaRPCURL   string
	Commitment     string
	Cluster        string // explorer link cluster ("devnet", "mainnet-beta", ...)
	ConfirmTimeout time.Duration
	RPCRateLimit   float64

	// Workflow
	StatusRevertDelay time.Duration
	RunTimeout        time.Duration
	StagedCreate      bool
	OnChainMetadata   bool
	MetadataURI       string

	// Wallet: file first, then Secret Manager
	WalletKeypairPath  string
	SolanaWalletSecret string

	// GCP / Firebase
	GCPProjectID             string
	FirestoreProjectID       string
	FirestoreCredentialsFile string
	FirebaseProjectID        string
	AuthEnabled              bool

	// Journal / lock backend: memory | firestore | postgres
	RunStore    string
	DatabaseURL string
	LockBackend string // memory | firestore
	LockTTL     time.Duration

	// Notification
	SendGridAPIKey  string
	NotifyEmailFrom string
	NotifyEmailTo   string

	CORSAllowedOrigins []string
}

var ErrInvalidConfig = errors.New("config: invalid configuration")

const (
	RunStoreMemory    = "memory"
	RunStoreFirestore = "firestore"
	RunStorePostgres  = "postgres"
)

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("SOLANA_RPC_URL", "https://api.devnet.solana.com")
	v.SetDefault("SOLANA_COMMITMENT", "confirmed")
	v.SetDefault("SOLANA_CLUSTER", "devnet")
	v.SetDefault("CONFIRM_TIMEOUT", "90s")
	v.SetDefault("RPC_RATE_LIMIT", 8.0)
	v.SetDefault("STATUS_REVERT_DELAY", "5s")
	v.SetDefault("RUN_TIMEOUT", "3m")
	v.SetDefault("STAGED_CREATE", false)
	v.SetDefault("ONCHAIN_METADATA", false)
	v.SetDefault("METADATA_URI", "")
	v.SetDefault("WALLET_KEYPAIR_PATH", "")
	v.SetDefault("SOLANA_WALLET_SECRET", "")
	v.SetDefault("GCP_PROJECT_ID", "")
	v.SetDefault("FIRESTORE_PROJECT_ID", "")
	v.SetDefault("FIRESTORE_CREDENTIALS_FILE", "")
	v.SetDefault("FIREBASE_PROJECT_ID", "")
	v.SetDefault("AUTH_ENABLED", false)
	v.SetDefault("RUN_STORE", RunStoreMemory)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("LOCK_BACKEND", RunStoreMemory)
	v.SetDefault("LOCK_TTL", "2m")
	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("NOTIFY_EMAIL_FROM", "")
	v.SetDefault("NOTIFY_EMAIL_TO", "")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
}

// New returns a viper instance with defaults, env binding and an optional config.yaml.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()
	return v
}

// Load は環境変数（と任意の config.yaml）を読み込み Config を返します。
func Load() (*Config, error) {
	v := New()
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}
	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	// ベースとなる GCP プロジェクト ID
	defaultProject := strings.TrimSpace(v.GetString("GCP_PROJECT_ID"))

	cfg := &Config{
		Port: v.GetString("PORT"),

		SolanaRPCURL:   strings.TrimSpace(v.GetString("SOLANA_RPC_URL")),
		Commitment:     strings.ToLower(strings.TrimSpace(v.GetString("SOLANA_COMMITMENT"))),
		Cluster:        strings.TrimSpace(v.GetString("SOLANA_CLUSTER")),
		ConfirmTimeout: v.GetDuration("CONFIRM_TIMEOUT"),
		RPCRateLimit:   v.GetFloat64("RPC_RATE_LIMIT"),

		StatusRevertDelay: v.GetDuration("STATUS_REVERT_DELAY"),
		RunTimeout:        v.GetDuration("RUN_TIMEOUT"),
		StagedCreate:      v.GetBool("STAGED_CREATE"),
		OnChainMetadata:   v.GetBool("ONCHAIN_METADATA"),
		MetadataURI:       strings.TrimSpace(v.GetString("METADATA_URI")),

		WalletKeypairPath:  strings.TrimSpace(v.GetString("WALLET_KEYPAIR_PATH")),
		SolanaWalletSecret: strings.TrimSpace(v.GetString("SOLANA_WALLET_SECRET")),

		GCPProjectID:             defaultProject,
		FirestoreProjectID:       firstNonEmpty(v.GetString("FIRESTORE_PROJECT_ID"), defaultProject),
		FirestoreCredentialsFile: strings.TrimSpace(v.GetString("FIRESTORE_CREDENTIALS_FILE")),
		// ★ FIREBASE_PROJECT_ID が未指定なら GCP のデフォルトを使う
		FirebaseProjectID: firstNonEmpty(v.GetString("FIREBASE_PROJECT_ID"), defaultProject),
		AuthEnabled:       v.GetBool("AUTH_ENABLED"),

		RunStore:    strings.ToLower(strings.TrimSpace(v.GetString("RUN_STORE"))),
		DatabaseURL: strings.TrimSpace(v.GetString("DATABASE_URL")),
		LockBackend: strings.ToLower(strings.TrimSpace(v.GetString("LOCK_BACKEND"))),
		LockTTL:     v.GetDuration("LOCK_TTL"),

		SendGridAPIKey:  strings.TrimSpace(v.GetString("SENDGRID_API_KEY")),
		NotifyEmailFrom: strings.TrimSpace(v.GetString("NOTIFY_EMAIL_FROM")),
		NotifyEmailTo:   strings.TrimSpace(v.GetString("NOTIFY_EMAIL_TO")),

		CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks combinations that would otherwise fail late at wiring time.
func (c *Config) Validate() error {
	switch c.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		return fmt.Errorf("%w: SOLANA_COMMITMENT=%q", ErrInvalidConfig, c.Commitment)
	}
	switch c.RunStore {
	case RunStoreMemory:
	case RunStoreFirestore:
		if c.FirestoreProjectID == "" {
			return fmt.Errorf("%w: RUN_STORE=firestore needs FIRESTORE_PROJECT_ID or GCP_PROJECT_ID", ErrInvalidConfig)
		}
	case RunStorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: RUN_STORE=postgres needs DATABASE_URL", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: RUN_STORE=%q", ErrInvalidConfig, c.RunStore)
	}
	switch c.LockBackend {
	case RunStoreMemory:
	case RunStoreFirestore:
		if c.FirestoreProjectID == "" {
			return fmt.Errorf("%w: LOCK_BACKEND=firestore needs FIRESTORE_PROJECT_ID or GCP_PROJECT_ID", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: LOCK_BACKEND=%q", ErrInvalidConfig, c.LockBackend)
	}
	if c.ConfirmTimeout <= 0 {
		return fmt.Errorf("%w: CONFIRM_TIMEOUT must be positive", ErrInvalidConfig)
	}
	if c.AuthEnabled && c.FirebaseProjectID == "" {
		return fmt.Errorf("%w: AUTH_ENABLED needs FIREBASE_PROJECT_ID or GCP_PROJECT_ID", ErrInvalidConfig)
	}
	return nil
}

// NeedsFirestore reports whether any component is backed by Firestore.
func (c *Config) NeedsFirestore() bool {
	return c.RunStore == RunStoreFirestore || c.LockBackend == RunStoreFirestore
}

// NotifyEnabled reports whether e-mail notification is fully configured.
func (c *Config) NotifyEnabled() bool {
	return c.SendGridAPIKey != "" && c.NotifyEmailFrom != "" && c.NotifyEmailTo != ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
