package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/assets"
	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/chain"
	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/types"
)

var balanceSymbol string

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show wallet balances",
	Long: `Show the connected wallet's ETH balance and its balance of the shop token.

Examples:
  gladiator-shop balance
  gladiator-shop balance --symbol DAI`,
	Run: runBalance,
}

func init() {
	rootCmd.AddCommand(balanceCmd)

	balanceCmd.Flags().StringVar(&balanceSymbol, "symbol", "", "Show this token instead of the shop token")
}

func runBalance(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	logger := newLogger(cmd)
	defer logger.Sync()

	cfg := loadConfig()
	ctx := cmd.Context()

	sess := connect(ctx, cfg, true, false, logger)
	defer sess.Close()

	wallet, err := sess.Wallet()
	mustRequire(err)
	provider, err := sess.Provider()
	mustRequire(err)

	symbol := balanceSymbol
	if symbol == "" {
		symbol = assets.PreferredToken(cfg.Testnet)
	}

	tokens, err := loadTokens(ctx, cfg, logger)
	if err != nil {
		printAlert(err)
		os.Exit(1)
	}
	token, err := assets.Find(tokens, symbol)
	mustRequire(err)

	list := []types.Asset{assets.Ether(chainID(cfg))}
	if !token.IsNative() {
		list = append(list, token)
	}

	balances := make(map[string]string, len(list))
	for _, a := range list {
		amount, err := chain.Balance(ctx, provider, wallet, a)
		if err != nil {
			printError(fmt.Errorf("%s: %w", a.Symbol, err))
			os.Exit(1)
		}
		balances[a.Symbol] = types.FormatUnits(amount, a.Decimals, 6)
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"wallet":   wallet.Hex(),
			"balances": balances,
		})
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                    WALLET BALANCES")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("\n  Wallet:            %s\n", color.CyanString(wallet.Hex()))
	for _, a := range list {
		fmt.Printf("  %-18s %s\n", a.Symbol+":", balances[a.Symbol])
	}
	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}
