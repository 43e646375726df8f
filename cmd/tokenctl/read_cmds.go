// cmd/tokenctl/read_cmds.go
package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	usecase "github.com/PraiseTechzw/solana-token-manager/internal/application/usecase"
	"github.com/PraiseTechzw/solana-token-manager/internal/domain/portfolio"
)

func newTokensCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "tokens",
		Short: "List the wallet's token holdings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cont, err := c.container(ctx)
			if err != nil {
				return err
			}
			hs, err := cont.PortfolioUC.ListTokens(ctx)
			if err != nil {
				return err
			}
			if len(hs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no tokens")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSYMBOL\tBALANCE\tDECIMALS\tMINT")
			for _, h := range hs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", h.Name, h.Symbol, h.Balance, h.Decimals, h.Mint)
			}
			return tw.Flush()
		},
	}
}

func newHistoryCmd(c *cli) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the wallet's recent transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cont, err := c.container(ctx)
			if err != nil {
				return err
			}
			entries, err := cont.PortfolioUC.History(ctx, limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no transactions")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tTYPE\tSTATUS\tSLOT\tSIGNATURE")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", blockTime(e.BlockTime), e.Type, e.Status, e.Slot, e.Signature)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", usecase.DefaultHistoryLimit, "number of transactions (max 50)")
	return cmd
}

func newBalanceCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show the wallet address and SOL balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cont, err := c.container(ctx)
			if err != nil {
				return err
			}
			info, err := cont.PortfolioUC.Balance(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "address: %s\nbalance: %s SOL\n", info.Address, info.SOL)
			return nil
		},
	}
}

func newAirdropCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "airdrop [sol]",
		Short: "Request devnet SOL for the wallet (default 2)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sol := usecase.DefaultAirdropSOL
			if len(args) == 1 {
				v, err := strconv.ParseFloat(args[0], 64)
				if err != nil {
					return fmt.Errorf("invalid sol amount %q: %w", args[0], err)
				}
				sol = v
			}

			ctx := cmd.Context()
			cont, err := c.container(ctx)
			if err != nil {
				return err
			}
			sig, err := cont.PortfolioUC.Airdrop(ctx, sol)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "airdrop confirmed: %s\n  explorer: %s\n", sig, explorerURL(sig, cont.Config.Cluster))
			return nil
		},
	}
}

func blockTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func explorerURL(sig, cluster string) string {
	return portfolio.ExplorerURL(sig, cluster)
}
