package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danhendrickson/gladiator-shop-ethdenver2024/config"
	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/assets"
	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/chain"
	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/client"
	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/orchestrator"
	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/session"
	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/types"
)

var rootCmd = &cobra.Command{
	Use:   "gladiator-shop",
	Short: "Swap tokens and buy Gladiator shop items on Ethereum",
	Long: `gladiator-shop prices swaps through the 0x API, approves token allowances,
submits transactions from your wallet and waits for their receipts. Shop items
are paid to the Gladiator receiver contract and reported to the game backend.

Examples:
  gladiator-shop price 100 USDC to ETH
  gladiator-shop swap 100 USDC to ETH
  gladiator-shop buy 12 --pay USDC --cost 5
  gladiator-shop list-tokens
  gladiator-shop status <tx-hash> --watch`,
	Version: "0.1.0",
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", message)
}

// printAlert shows a flow error the way the shop modal does
func printAlert(err error) {
	alert := orchestrator.Describe(err)
	if alert.Soft {
		color.Yellow("\n%s", alert.Header)
	} else {
		color.Red("\n%s", alert.Header)
	}
	fmt.Printf("  %s\n\n", alert.Message)
}

func printJSON(v interface{}) {
	jsonData, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(jsonData))
}

// newLogger builds a development logger for --verbose and a quiet production logger otherwise
func newLogger(cmd *cobra.Command) *zap.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")

	var (
		logger *zap.Logger
		err    error
	)
	if verbose {
		logger, err = zap.NewDevelopment()
	} else {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
		logger, err = cfg.Build()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	return cfg
}

func mustRequire(err error) {
	if err != nil {
		printError(err)
		os.Exit(1)
	}
}

// loadTokens returns the tradable assets for the configured network
func loadTokens(ctx context.Context, cfg *config.Config, logger *zap.Logger) ([]types.Asset, error) {
	if cfg.Testnet {
		return assets.TestnetTokens(), nil
	}

	tokenClient := client.NewTokenListClient(client.WithBaseURL(cfg.TokenListURL), client.WithLogger(logger))
	tokens, err := tokenClient.GetTokens(ctx, assets.MainnetSymbols)
	if err != nil {
		return nil, err
	}
	return append([]types.Asset{assets.Ether(assets.MainnetChainID)}, tokens...), nil
}

func chainID(cfg *config.Config) int64 {
	if cfg.Testnet {
		return assets.SepoliaChainID
	}
	return assets.MainnetChainID
}

// connect opens a session; with confirm set, every signature is prompted
func connect(ctx context.Context, cfg *config.Config, signing bool, prompt bool, logger *zap.Logger) *session.Session {
	mustRequire(cfg.RequireChain(signing))

	params := session.Params{
		RPCURL:  cfg.RPCURL,
		Testnet: cfg.Testnet,
	}
	if signing {
		params.PrivateKey = cfg.PrivateKey
	}
	if prompt {
		params.Confirm = promptSignature
	}

	sess, err := session.Connect(ctx, params, logger)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	return sess
}

func newOrchestrator(cfg *config.Config, sess *session.Session, quotes orchestrator.QuoteResolver, ledger orchestrator.LedgerReporter, p *progress, logger *zap.Logger) *orchestrator.Orchestrator {
	return orchestrator.New(sess, quotes, ledger,
		orchestrator.WithLogger(logger),
		orchestrator.WithReceiver(cfg.Receiver()),
		orchestrator.WithDebounce(cfg.PriceDebounce),
		orchestrator.WithStateHook(p.hook),
		orchestrator.WithWatcherOptions(watcherOptions(cfg, logger)...))
}

func watcherOptions(cfg *config.Config, logger *zap.Logger) []chain.WatcherOption {
	return []chain.WatcherOption{
		chain.WithPollInterval(cfg.ReceiptPollInterval),
		chain.WithReceiptTimeout(cfg.ReceiptTimeout),
		chain.WithWatcherLogger(logger),
	}
}

func promptSignature(_ context.Context, tx *ethtypes.Transaction) bool {
	fmt.Println()
	color.Cyan("  Signature requested")
	fmt.Printf("  To:      %s\n", tx.To().Hex())
	fmt.Printf("  Value:   %s ETH\n", types.FormatUnits(tx.Value(), 18, 8))
	fmt.Printf("  Gas:     %d @ %s gwei\n", tx.Gas(), types.FormatUnits(tx.GasPrice(), 9, 2))
	return confirm("Sign and send this transaction?")
}

func confirm(question string) bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Printf("\n%s (y/N): ", question)

	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

// progress renders orchestrator state changes
type progress struct {
	s     *spinner.Spinner
	quiet bool
}

func newProgress(quiet bool) *progress {
	return &progress{
		s:     spinner.New(spinner.CharSets[14], 100*time.Millisecond),
		quiet: quiet,
	}
}

func (p *progress) start(message string) {
	if p.quiet {
		return
	}
	p.s.Stop()
	p.s.Suffix = " " + message
	p.s.Start()
}

func (p *progress) stop() {
	if p.quiet {
		return
	}
	p.s.Stop()
}

func (p *progress) hook(tr orchestrator.Transition) {
	switch tr.To {
	case orchestrator.StatePricing:
		p.start("Fetching price...")
	case orchestrator.StateApproving:
		p.stop()
		if !p.quiet {
			color.Yellow("\nAllowance too low; an approval transaction is needed first.")
		}
	case orchestrator.StateSubmitting:
		p.stop()
	case orchestrator.StatePending:
		p.start(fmt.Sprintf("Waiting for %s to be mined...", tr.Record.Hash.Hex()))
	default:
		p.stop()
	}
}

func recordColor(status types.TxStatus) string {
	switch status {
	case types.TxConfirmed:
		return color.GreenString(string(status))
	case types.TxBroadcast:
		return color.CyanString(string(status))
	case types.TxTimedOut:
		return color.YellowString(string(status))
	default:
		return color.RedString(string(status))
	}
}

func displayRecords(records []types.TransactionRecord) {
	if len(records) == 0 {
		return
	}
	fmt.Println("\n" + strings.Repeat("-", 90))
	for _, r := range records {
		fmt.Printf("  %-9s %-10s %s\n", r.Kind, recordColor(r.Status), color.HiBlackString(r.Hash.Hex()))
		if r.Error != "" {
			fmt.Printf("            %s\n", color.RedString(r.Error))
		}
	}
	fmt.Println(strings.Repeat("-", 90))
}
