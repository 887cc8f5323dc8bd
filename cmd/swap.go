package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/client"
)

var noConfirm bool

var swapCmd = &cobra.Command{
	Use:   "swap <amount> <sell-token> to <buy-token>",
	Short: "Swap tokens through the 0x API",
	Long: `Swap tokens from your wallet using the 0x swap API.

When selling an ERC-20 token whose allowance is too low, an approval
transaction is sent and confirmed before the swap itself.

Examples:
  gladiator-shop swap 100 USDC to ETH
  gladiator-shop swap 0.5 ETH to LINK --yes`,
	Args: cobra.MinimumNArgs(4),
	Run:  runSwap,
}

func init() {
	rootCmd.AddCommand(swapCmd)

	swapCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompts")
}

func runSwap(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	logger := newLogger(cmd)
	defer logger.Sync()

	cfg := loadConfig()
	mustRequire(cfg.RequireAPIKey())
	mustRequire(cfg.RequireChain(true))

	ctx := cmd.Context()
	input := resolveSwapInput(ctx, cfg, args, jsonOutput, logger)

	sess := connect(ctx, cfg, true, !noConfirm && !jsonOutput, logger)
	defer sess.Close()

	quotes := client.NewZeroExClient(cfg.ZeroExAPIKey, cfg.Testnet, client.WithLogger(logger))
	p := newProgress(jsonOutput)
	orch := newOrchestrator(cfg, sess, quotes, nil, p, logger)
	defer orch.Close()

	orch.SetInputs(input)
	quote, err := orch.RefreshPrice(ctx)
	p.stop()
	if err != nil {
		printAlert(err)
		os.Exit(1)
	}
	_, fee, _ := orch.Quote()

	if !jsonOutput {
		displayQuote(quote, fee)
		if !noConfirm && !confirm("Proceed with swap?") {
			orch.Cancel()
			fmt.Println("\nSwap cancelled.")
			os.Exit(0)
		}
	}

	record, err := orch.Swap(ctx)
	p.stop()

	if jsonOutput {
		output := map[string]interface{}{
			"state":   orch.State(),
			"records": orch.History().List(),
		}
		if err != nil {
			output["error"] = err.Error()
		}
		printJSON(output)
		if err != nil {
			os.Exit(1)
		}
		return
	}

	displayRecords(orch.History().List())

	if err != nil {
		printAlert(err)
		if record != nil {
			fmt.Println("You can check the transaction later using:")
			color.Cyan("  gladiator-shop status %s --watch\n", record.Hash.Hex())
		}
		os.Exit(1)
	}

	color.Green("\n✓ Swap confirmed in block %d", record.BlockNum)
	printSuccess(fmt.Sprintf("Transaction: %s", record.Hash.Hex()))
}
