package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danhendrickson/gladiator-shop-ethdenver2024/config"
	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/assets"
	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/client"
	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/parser"
	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/session"
	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/types"
)

var priceCmd = &cobra.Command{
	Use:   "price <amount> <sell-token> to <buy-token>",
	Short: "Get an indicative price for a swap",
	Long: `Fetch a non-binding price from the 0x API, including the estimated network fee.

Examples:
  gladiator-shop price 100 USDC to ETH
  gladiator-shop price 0.5 ETH to LINK --json`,
	Args: cobra.MinimumNArgs(4),
	Run:  runPrice,
}

func init() {
	rootCmd.AddCommand(priceCmd)
}

func runPrice(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	logger := newLogger(cmd)
	defer logger.Sync()

	cfg := loadConfig()
	mustRequire(cfg.RequireAPIKey())

	ctx := cmd.Context()
	input := resolveSwapInput(ctx, cfg, args, jsonOutput, logger)

	quotes := client.NewZeroExClient(cfg.ZeroExAPIKey, cfg.Testnet, client.WithLogger(logger))
	p := newProgress(jsonOutput)
	orch := newOrchestrator(cfg, session.New(nil, nil, cfg.Testnet), quotes, nil, p, logger)
	defer orch.Close()

	orch.SetInputs(input)
	quote, err := orch.RefreshPrice(ctx)
	p.stop()
	if err != nil {
		printAlert(err)
		os.Exit(1)
	}
	_, fee, _ := orch.Quote()

	if jsonOutput {
		printJSON(quoteOutput(quote, fee))
		return
	}
	displayQuote(quote, fee)
}

// resolveSwapInput parses "<amount> <sell> to <buy>" and looks both symbols up
func resolveSwapInput(ctx context.Context, cfg *config.Config, args []string, quiet bool, logger *zap.Logger) types.PriceInput {
	command, err := parser.ParseSwapCommand(strings.Join(args, " "))
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !quiet {
		s.Suffix = " Fetching token list..."
		s.Start()
	}
	tokens, err := loadTokens(ctx, cfg, logger)
	if !quiet {
		s.Stop()
	}
	if err != nil {
		printAlert(err)
		os.Exit(1)
	}

	sell, err := assets.Find(tokens, command.Sell)
	if err != nil {
		printError(fmt.Errorf("%w (try: gladiator-shop list-tokens)", err))
		os.Exit(1)
	}
	buy, err := assets.Find(tokens, command.Buy)
	if err != nil {
		printError(fmt.Errorf("%w (try: gladiator-shop list-tokens)", err))
		os.Exit(1)
	}

	return types.PriceInput{Sell: sell, Buy: buy, Amount: command.Amount}
}

func quoteOutput(quote *types.Quote, fee *types.Fee) map[string]interface{} {
	output := map[string]interface{}{
		"sell_token":  quote.Input.Sell.Symbol,
		"sell_amount": quote.Input.Amount,
		"buy_token":   quote.Input.Buy.Symbol,
		"buy_amount":  quote.BuyAmountFormatted(),
		"price":       quote.Price.String(),
	}
	if fee != nil {
		output["fee_eth"] = fee.Native.String()
		if fee.Reference != nil {
			output["fee_usd"] = fee.Reference.StringFixed(2)
		}
	}
	return output
}

func displayQuote(quote *types.Quote, fee *types.Fee) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                      SWAP PRICE")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  From:              %s %s\n", quote.Input.Amount, color.YellowString(quote.Input.Sell.Symbol))
	fmt.Printf("  To:                ~%s %s\n", quote.BuyAmountFormatted(), color.YellowString(quote.Input.Buy.Symbol))
	fmt.Printf("  Price:             %s %s/%s\n", quote.Price.String(), quote.Input.Buy.Symbol, quote.Input.Sell.Symbol)

	if fee != nil {
		if fee.Reference != nil {
			fmt.Printf("  Network Fee:       %s ETH (~$%s)\n", fee.Native.Truncate(8).String(), fee.Reference.StringFixed(2))
		} else {
			fmt.Printf("  Network Fee:       %s ETH\n", fee.Native.Truncate(8).String())
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}
