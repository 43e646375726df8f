// cmd/tokenctl/keygen.go
package main

import (
	"fmt"
	"strings"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/spf13/cobra"

	solanainfra "github.com/PraiseTechzw/solana-token-manager/internal/infra/solana"
)

func newKeygenCmd(c *cli) *cobra.Command {
	var (
		outfile string
		force   bool
	)
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a new wallet keypair (solana-keygen compatible JSON)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := strings.TrimSpace(outfile)
			if path == "" {
				path = strings.TrimSpace(c.v.GetString("WALLET_KEYPAIR_PATH"))
			}
			if path == "" {
				return fmt.Errorf("keygen: --outfile (or --keypair) is required")
			}

			acc := types.NewAccount()
			if err := solanainfra.WriteKeypairFile(path, acc, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\npubkey: %s\n", path, acc.PublicKey.ToBase58())
			return nil
		},
	}
	cmd.Flags().StringVarP(&outfile, "outfile", "o", "", "where to write the keypair")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}
