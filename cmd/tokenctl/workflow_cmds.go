// cmd/tokenctl/workflow_cmds.go
package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	usecase "github.com/PraiseTechzw/solana-token-manager/internal/application/usecase"
	"github.com/PraiseTechzw/solana-token-manager/internal/domain/workflow"
)

// errRunFailed makes cobra exit non-zero without printing usage.
type errRunFailed struct{ res workflow.Result }

func (e errRunFailed) Error() string {
	return fmt.Sprintf("%s failed (%s): %s", e.res.Action, e.res.Reason, e.res.Message)
}

func newCreateCmd(c *cli) *cobra.Command {
	var in usecase.CreateTokenInput
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new SPL token and mint its initial supply to the wallet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runWorkflow(cmd, "Creating token...", func(ctx context.Context, wf *usecase.TokenWorkflowUsecase, p usecase.ProgressFunc) workflow.Result {
				return wf.CreateToken(ctx, in, p)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Name, "name", "", "token name")
	f.StringVar(&in.Symbol, "symbol", "", "token symbol")
	f.IntVar(&in.Decimals, "decimals", 9, "decimal places (0-9)")
	f.StringVar(&in.InitialSupply, "supply", "0", "initial supply in display units")
	return cmd
}

func newMintCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mint <mint-address> <amount>",
		Short: "Mint more of an existing token to the wallet",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := usecase.MintMoreInput{MintAddress: args[0], Amount: args[1]}
			return c.runWorkflow(cmd, "Minting tokens...", func(ctx context.Context, wf *usecase.TokenWorkflowUsecase, p usecase.ProgressFunc) workflow.Result {
				return wf.MintMore(ctx, in, p)
			})
		},
	}
	return cmd
}

func newSendCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <mint-address> <recipient> <amount>",
		Short: "Send tokens from the wallet to a recipient",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := usecase.SendTokenInput{MintAddress: args[0], Recipient: args[1], Amount: args[2]}
			return c.runWorkflow(cmd, "Sending tokens...", func(ctx context.Context, wf *usecase.TokenWorkflowUsecase, p usecase.ProgressFunc) workflow.Result {
				return wf.SendToken(ctx, in, p)
			})
		},
	}
	return cmd
}

// runWorkflow runs one workflow synchronously and prints every Status transition.
func (c *cli) runWorkflow(
	cmd *cobra.Command,
	beginMsg string,
	run func(context.Context, *usecase.TokenWorkflowUsecase, usecase.ProgressFunc) workflow.Result,
) error {
	ctx := cmd.Context()
	cont, err := c.container(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	tracker := workflow.NewTracker(0, func(st workflow.Status) {
		printStatus(out, st)
	})

	tracker.Begin(beginMsg)
	res := run(ctx, cont.WorkflowUC, tracker.Progress)
	tracker.Finish(res)

	printResult(out, res, cont.Config.Cluster)
	if res.Outcome == workflow.OutcomeFailure {
		return errRunFailed{res: res}
	}
	return nil
}

func printStatus(w io.Writer, st workflow.Status) {
	if st.Message == "" {
		fmt.Fprintf(w, "[%s]\n", st.State)
		return
	}
	fmt.Fprintf(w, "[%s] %s\n", st.State, st.Message)
}

func printResult(w io.Writer, res workflow.Result, cluster string) {
	var b strings.Builder
	switch res.Action {
	case workflow.ActionCreateToken:
		if res.Reference != "" {
			fmt.Fprintf(&b, "  mint:      %s\n", res.Reference)
		}
	}
	if res.Signature != "" {
		fmt.Fprintf(&b, "  signature: %s\n", res.Signature)
		fmt.Fprintf(&b, "  explorer:  %s\n", explorerURL(res.Signature, cluster))
	}
	if res.Warning != "" {
		fmt.Fprintf(&b, "  warning:   %s\n", res.Warning)
	}
	if res.Reason != workflow.KindNone {
		fmt.Fprintf(&b, "  reason:    %s\n", res.Reason)
	}
	if res.Err != nil {
		fmt.Fprintf(&b, "  error:     %v\n", res.Err)
	}
	fmt.Fprint(w, b.String())
}
