package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/types"
)

var filterSymbol string

var tokensCmd = &cobra.Command{
	Use:     "list-tokens",
	Aliases: []string{"tokens", "ls"},
	Short:   "List the tokens available for swaps",
	Long: `List the tokens the shop can swap on the configured network.

Mainnet tokens come from the public token list; testnet uses a fixed set of
Sepolia tokens.

Examples:
  gladiator-shop list-tokens
  gladiator-shop list-tokens --symbol USD`,
	Run: runListTokens,
}

func init() {
	rootCmd.AddCommand(tokensCmd)

	tokensCmd.Flags().StringVar(&filterSymbol, "symbol", "", "Filter by token symbol")
}

func runListTokens(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	logger := newLogger(cmd)
	defer logger.Sync()

	cfg := loadConfig()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching supported tokens..."
		s.Start()
	}

	tokens, err := loadTokens(cmd.Context(), cfg, logger)
	if !jsonOutput {
		s.Stop()
	}

	if err != nil {
		printAlert(err)
		os.Exit(1)
	}

	filtered := tokens
	if filterSymbol != "" {
		var temp []types.Asset
		for _, token := range filtered {
			if strings.Contains(strings.ToUpper(token.Symbol), strings.ToUpper(filterSymbol)) {
				temp = append(temp, token)
			}
		}
		filtered = temp
	}

	if jsonOutput {
		printJSON(filtered)
	} else {
		displayTokens(filtered, cfg.Testnet)
	}
}

func displayTokens(tokens []types.Asset, testnet bool) {
	if len(tokens) == 0 {
		fmt.Println("\nNo tokens found matching the criteria.")
		return
	}

	network := "MAINNET"
	if testnet {
		network = "SEPOLIA"
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	color.Green("                            SUPPORTED TOKENS (%s)", network)
	fmt.Println(strings.Repeat("=", 90))

	for _, token := range tokens {
		address := token.Address.Hex()
		if token.IsNative() {
			address = "native"
		}
		fmt.Printf("  %-10s  %-24s  %2d decimals  %s\n",
			color.YellowString(token.Symbol),
			token.Name,
			token.Decimals,
			color.HiBlackString(address))
	}

	fmt.Println(strings.Repeat("=", 90))
	fmt.Printf("\nTotal: %d tokens\n\n", len(tokens))
}
