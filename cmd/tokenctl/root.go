// cmd/tokenctl/root.go
package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	appcfg "github.com/PraiseTechzw/solana-token-manager/internal/infra/config"
	"github.com/PraiseTechzw/solana-token-manager/internal/platform/di"
)

// cli は全サブコマンドが共有する状態。コンテナは必要になった時点で一度だけ作る。
type cli struct {
	v    *viper.Viper
	cont *di.Container

	newContainer func(context.Context, *appcfg.Config) (*di.Container, error)
}

func newCLI() *cli {
	return &cli{v: appcfg.New(), newContainer: di.NewContainer}
}

func newRootCmd() *cobra.Command {
	return newCLI().command()
}

func (c *cli) command() *cobra.Command {
	root := &cobra.Command{
		Use:           "tokenctl",
		Short:         "Create, mint and send SPL tokens on Solana devnet",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			c.close()
		},
	}

	pf := root.PersistentFlags()
	pf.String("keypair", "", "path to a solana-keygen JSON keypair (env WALLET_KEYPAIR_PATH)")
	pf.String("rpc", "", "Solana RPC endpoint (env SOLANA_RPC_URL)")
	pf.String("commitment", "", "confirmation level: processed|confirmed|finalized (env SOLANA_COMMITMENT)")
	_ = c.v.BindPFlag("WALLET_KEYPAIR_PATH", pf.Lookup("keypair"))
	_ = c.v.BindPFlag("SOLANA_RPC_URL", pf.Lookup("rpc"))
	_ = c.v.BindPFlag("SOLANA_COMMITMENT", pf.Lookup("commitment"))

	root.AddCommand(
		newCreateCmd(c),
		newMintCmd(c),
		newSendCmd(c),
		newTokensCmd(c),
		newHistoryCmd(c),
		newBalanceCmd(c),
		newAirdropCmd(c),
		newKeygenCmd(c),
	)
	return root
}

// execute runs root with args and maps the outcome to a process exit code.
// A workflow that ends in Failure exits 1; PartialSuccess exits 0 with a printed warning.
func execute(root *cobra.Command, args []string) int {
	root.SetArgs(args)
	if _, err := root.ExecuteC(); err != nil {
		return 1
	}
	return 0
}

// config resolves flags → env → config.yaml → defaults.
func (c *cli) config() (*appcfg.Config, error) {
	if err := c.v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	return appcfg.FromViper(c.v)
}

func (c *cli) container(ctx context.Context) (*di.Container, error) {
	if c.cont != nil {
		return c.cont, nil
	}
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	cont, err := c.newContainer(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c.cont = cont
	return cont, nil
}

func (c *cli) close() {
	if c.cont != nil {
		c.cont.Close()
		c.cont = nil
	}
}
