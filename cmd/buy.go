package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/assets"
	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/client"
	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/orchestrator"
	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/types"
)

var (
	payToken  string
	itemCost  string
	buyNoWait bool
)

var buyCmd = &cobra.Command{
	Use:   "buy <item-id>",
	Short: "Buy a shop item",
	Long: `Pay the Gladiator receiver contract for a shop item and report the purchase
to the game backend.

ETH is sent directly. Tokens (USDC on mainnet, LINK on testnet) are approved
for the receiver contract first when the allowance is too low, then deposited.

Examples:
  gladiator-shop buy 12 --pay ETH --cost 0.002
  gladiator-shop buy 12 --pay USDC --cost 5
  gladiator-shop buy 12 --pay LINK --cost 1.5 --yes`,
	Args: cobra.ExactArgs(1),
	Run:  runBuy,
}

func init() {
	rootCmd.AddCommand(buyCmd)

	buyCmd.Flags().StringVar(&payToken, "pay", "", "Payment token: ETH or the network's shop token (default: shop token)")
	buyCmd.Flags().StringVar(&itemCost, "cost", "", "Item cost in the payment token (REQUIRED)")
	buyCmd.Flags().BoolVarP(&buyNoWait, "yes", "y", false, "Skip confirmation prompts")
	buyCmd.MarkFlagRequired("cost")
}

func runBuy(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	logger := newLogger(cmd)
	defer logger.Sync()

	itemID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || itemID <= 0 {
		printError(fmt.Errorf("invalid item id: %s", args[0]))
		os.Exit(1)
	}

	cost, err := decimal.NewFromString(itemCost)
	if err != nil || !cost.IsPositive() {
		printError(fmt.Errorf("cost must be a number greater than 0"))
		os.Exit(1)
	}

	cfg := loadConfig()
	mustRequire(cfg.RequireChain(true))

	shopToken := assets.PreferredToken(cfg.Testnet)
	if payToken == "" {
		payToken = shopToken
	}
	payToken = strings.ToUpper(payToken)
	if payToken != "ETH" && payToken != shopToken {
		printError(fmt.Errorf("the shop accepts ETH or %s on this network", shopToken))
		os.Exit(1)
	}

	ctx := cmd.Context()
	tokens, err := loadTokens(ctx, cfg, logger)
	if err != nil {
		printAlert(err)
		os.Exit(1)
	}
	pay, err := assets.Find(tokens, payToken)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	if pay.IsNative() {
		pay = assets.Ether(chainID(cfg))
	}

	item := types.ShopItem{ID: itemID}
	if pay.IsNative() {
		item.CostNative = cost
	} else {
		item.CostToken = cost
	}
	req := orchestrator.PurchaseRequest{Item: item, Pay: pay}

	if !jsonOutput {
		displayPurchase(req, cfg.Receiver().Hex())
		if !buyNoWait && !confirm("Proceed with purchase?") {
			fmt.Println("\nPurchase cancelled.")
			os.Exit(0)
		}
	}

	sess := connect(ctx, cfg, true, !buyNoWait && !jsonOutput, logger)
	defer sess.Close()

	ledger := client.NewLedgerClient(client.WithBaseURL(cfg.LedgerURL), client.WithLogger(logger))
	p := newProgress(jsonOutput)
	orch := newOrchestrator(cfg, sess, nil, ledger, p, logger)

	record, err := orch.Purchase(ctx, req)
	p.stop()
	orch.Close()

	if jsonOutput {
		output := map[string]interface{}{
			"item_id": itemID,
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

	color.Green("\n✓ Item %d purchased!", itemID)
	printSuccess(fmt.Sprintf("Transaction: %s", record.Hash.Hex()))
}

func displayPurchase(req orchestrator.PurchaseRequest, receiver string) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                    SHOP PURCHASE")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  Item:              %s\n", color.CyanString("#%d", req.Item.ID))
	fmt.Printf("  Cost:              %s %s\n", req.Cost(), color.YellowString(req.Pay.Symbol))
	fmt.Printf("  Receiver:          %s\n", receiver)

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}
