// internal/infra/solana/keypair_loader.go
package solana

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	secretspb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/blocto/solana-go-sdk/types"

	"github.com/PraiseTechzw/solana-token-manager/internal/domain/ledger"
)

var ErrKeypairNotConfigured = errors.New("keypair_loader: no keypair source configured")

// LoadKeypairFile reads a solana-keygen keypair file ([u8;64] JSON).
func LoadKeypairFile(path string) (types.Account, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return types.Account{}, ErrKeypairNotConfigured
	}
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, p[2:])
		}
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return types.Account{}, fmt.Errorf("keypair_loader: read %s: %w", p, err)
	}
	acc, err := accountFromKeypairJSON(data)
	if err != nil {
		return types.Account{}, fmt.Errorf("keypair_loader: %s: %w", p, err)
	}
	log.Printf("[keypair_loader] loaded keypair from file pubkey=%s", acc.PublicKey.ToBase58())
	return acc, nil
}

// LoadKeypairSecret reads a keypair from a Secret Manager version.
// secretName is the full resource name
//
//	"projects/<PROJECT_ID>/secrets/<SECRET_ID>/versions/latest"
//
// or just <SECRET_ID>, in which case projectID and "latest" are filled in.
func LoadKeypairSecret(ctx context.Context, projectID, secretName string) (types.Account, error) {
	name := strings.TrimSpace(secretName)
	if name == "" {
		return types.Account{}, ErrKeypairNotConfigured
	}
	if !strings.HasPrefix(name, "projects/") {
		pid := strings.TrimSpace(projectID)
		if pid == "" {
			return types.Account{}, fmt.Errorf("%w: projectID is empty for secret %q", ErrKeypairNotConfigured, name)
		}
		name = fmt.Sprintf("projects/%s/secrets/%s/versions/latest", pid, name)
	}

	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return types.Account{}, fmt.Errorf("secretmanager.NewClient: %w", err)
	}
	defer client.Close()

	resp, err := client.AccessSecretVersion(ctx, &secretspb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return types.Account{}, fmt.Errorf("AccessSecretVersion: %w", err)
	}
	if resp == nil || resp.Payload == nil {
		return types.Account{}, fmt.Errorf("keypair_loader: secret %s has no payload", name)
	}

	acc, err := accountFromKeypairJSON(resp.Payload.Data)
	if err != nil {
		return types.Account{}, err
	}

	// ★ 公開鍵のみログに出す
	log.Printf("[keypair_loader] loaded keypair from Secret Manager: secret=%s pubkey=%s", name, acc.PublicKey.ToBase58())
	return acc, nil
}

// EncodeKeypairJSON renders acc the way solana-keygen writes it: a JSON array of 64 integers.
func EncodeKeypairJSON(acc types.Account) ([]byte, error) {
	if len(acc.PrivateKey) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("keypair_loader: unexpected private key length %d", len(acc.PrivateKey))
	}
	ints := make([]int, len(acc.PrivateKey))
	for i, b := range acc.PrivateKey {
		ints[i] = int(b)
	}
	return json.Marshal(ints)
}

// WriteKeypairFile writes acc to path with owner-only permissions. It refuses to overwrite
// unless force is set.
func WriteKeypairFile(path string, acc types.Account, force bool) error {
	data, err := EncodeKeypairJSON(acc)
	if err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("keypair_loader: mkdir %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		return fmt.Errorf("keypair_loader: open %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("keypair_loader: write %s: %w", path, err)
	}
	log.Printf("[keypair_loader] wrote keypair pubkey=%s path=%s", ledger.MaskShort(acc.PublicKey.ToBase58()), path)
	return f.Close()
}

func accountFromKeypairJSON(data []byte) (types.Account, error) {
	keyBytes, err := decodeKeypairJSON(data)
	if err != nil {
		return types.Account{}, err
	}
	acc, err := types.AccountFromBytes(keyBytes)
	if err != nil {
		return types.Account{}, fmt.Errorf("AccountFromBytes: %w", err)
	}
	return acc, nil
}

// decodeKeypairJSON は keypair JSON から 64 バイトの鍵配列を復元します。
// - 正: [u8;64]
// - 互換: [int,...]（範囲外の値はエラー）
func decodeKeypairJSON(data []byte) ([]byte, error) {
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return nil, fmt.Errorf("unmarshal keypair json: %w", err)
	}
	if len(ints) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("unexpected secret key length: got %d, want %d", len(ints), ed25519.PrivateKeySize)
	}
	keyBytes := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("keypair byte out of range at %d: %d", i, v)
		}
		keyBytes[i] = byte(v)
	}
	return keyBytes, nil
}
