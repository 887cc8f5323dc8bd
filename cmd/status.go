package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/chain"
)

var watchStatus bool

var statusCmd = &cobra.Command{
	Use:   "status <tx-hash>",
	Short: "Check the status of a transaction",
	Long: `Check whether a transaction has been mined and whether it succeeded.

With --watch the receipt is polled until it appears or the receipt timeout
passes.

Examples:
  gladiator-shop status 0x1234...abcd
  gladiator-shop status 0x1234...abcd --watch`,
	Args: cobra.ExactArgs(1),
	Run:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVarP(&watchStatus, "watch", "w", false, "Wait for the receipt")
}

func runStatus(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	logger := newLogger(cmd)
	defer logger.Sync()

	raw := args[0]
	if !strings.HasPrefix(raw, "0x") || len(raw) != 66 {
		printError(fmt.Errorf("invalid transaction hash: %s", raw))
		os.Exit(1)
	}
	hash := common.HexToHash(raw)

	cfg := loadConfig()
	ctx := cmd.Context()
	sess := connect(ctx, cfg, false, false, logger)
	defer sess.Close()

	provider, err := sess.Provider()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		if watchStatus {
			s.Suffix = fmt.Sprintf(" Waiting for %s to be mined...", hash.Hex())
		} else {
			s.Suffix = " Checking transaction status..."
		}
		s.Start()
	}

	var receipt *ethtypes.Receipt
	if watchStatus {
		receipt, err = chain.NewWatcher(provider, watcherOptions(cfg, logger)...).Await(ctx, hash)
	} else {
		receipt, err = chain.Lookup(ctx, provider, hash)
	}
	if !jsonOutput {
		s.Stop()
	}

	if err != nil {
		if jsonOutput {
			printJSON(map[string]interface{}{"hash": hash.Hex(), "error": err.Error()})
			os.Exit(1)
		}
		printAlert(err)
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(statusOutput(hash, receipt))
		return
	}
	displayStatus(hash, receipt)
}

func receiptStatus(receipt *ethtypes.Receipt) string {
	switch {
	case receipt == nil:
		return "PENDING"
	case chain.Succeeded(receipt):
		return "CONFIRMED"
	default:
		return "REVERTED"
	}
}

func statusOutput(hash common.Hash, receipt *ethtypes.Receipt) map[string]interface{} {
	output := map[string]interface{}{
		"hash":   hash.Hex(),
		"status": receiptStatus(receipt),
	}
	if receipt != nil {
		output["block"] = receipt.BlockNumber.Uint64()
		output["gas_used"] = receipt.GasUsed
	}
	return output
}

func displayStatus(hash common.Hash, receipt *ethtypes.Receipt) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                     TRANSACTION STATUS")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  Hash:            %s\n", color.CyanString(hash.Hex()))
	fmt.Printf("  Status:          %s\n", getColoredStatus(receiptStatus(receipt)))
	if receipt != nil {
		fmt.Printf("  Block:           %d\n", receipt.BlockNumber.Uint64())
		fmt.Printf("  Gas Used:        %d\n", receipt.GasUsed)
	}

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}

func getColoredStatus(status string) string {
	switch status {
	case "CONFIRMED":
		return color.GreenString(status)
	case "PENDING":
		return color.YellowString(status)
	case "REVERTED":
		return color.RedString(status)
	default:
		return status
	}
}
