package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"

	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/assets"
	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/chain"
	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/client"
	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/orchestrator"
)

// Config holds the application configuration
type Config struct {
	ZeroExAPIKey string
	RPCURL       string
	PrivateKey   string
	Testnet      bool

	LedgerURL    string
	TokenListURL string

	ReceiptPollInterval time.Duration
	ReceiptTimeout      time.Duration
	PriceDebounce       time.Duration

	ReceiverMainnet common.Address
	ReceiverTestnet common.Address
}

var globalConfig *Config

// Load reads configuration from environment variables and config file
func Load() (*Config, error) {
	viper.SetConfigName(".gladiator-shop")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(".")

	// Set default values
	viper.SetDefault("testnet", false)
	viper.SetDefault("ledger_url", client.DefaultLedgerURL)
	viper.SetDefault("token_list_url", client.DefaultTokenListURL)
	viper.SetDefault("receipt_poll_interval", chain.DefaultPollInterval)
	viper.SetDefault("receipt_timeout", chain.DefaultReceiptTimeout)
	viper.SetDefault("price_debounce", orchestrator.DefaultDebounce)
	viper.SetDefault("receiver_mainnet", assets.ReceiverMainnet.Hex())
	viper.SetDefault("receiver_testnet", assets.ReceiverSepolia.Hex())

	// Read from environment variables
	viper.SetEnvPrefix("GLADIATOR_SHOP")
	viper.AutomaticEnv()

	// Read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		ZeroExAPIKey:        viper.GetString("zeroex_api_key"),
		RPCURL:              viper.GetString("rpc_url"),
		PrivateKey:          viper.GetString("private_key"),
		Testnet:             viper.GetBool("testnet"),
		LedgerURL:           viper.GetString("ledger_url"),
		TokenListURL:        viper.GetString("token_list_url"),
		ReceiptPollInterval: viper.GetDuration("receipt_poll_interval"),
		ReceiptTimeout:      viper.GetDuration("receipt_timeout"),
		PriceDebounce:       viper.GetDuration("price_debounce"),
	}

	var err error
	if cfg.ReceiverMainnet, err = parseAddress("receiver_mainnet"); err != nil {
		return nil, err
	}
	if cfg.ReceiverTestnet, err = parseAddress("receiver_testnet"); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	globalConfig = cfg
	return cfg, nil
}

func parseAddress(key string) (common.Address, error) {
	value := strings.TrimSpace(viper.GetString(key))
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("invalid %s: %q is not an address", key, value)
	}
	return common.HexToAddress(value), nil
}

// Validate checks values that do not depend on the command being run
func (c *Config) Validate() error {
	if c.ReceiptPollInterval <= 0 {
		return fmt.Errorf("receipt_poll_interval must be greater than 0")
	}
	if c.ReceiptTimeout < c.ReceiptPollInterval {
		return fmt.Errorf("receipt_timeout must be at least receipt_poll_interval")
	}
	if c.PriceDebounce < 0 {
		return fmt.Errorf("price_debounce cannot be negative")
	}
	return nil
}

// RequireAPIKey checks that pricing is configured
func (c *Config) RequireAPIKey() error {
	if c.ZeroExAPIKey == "" {
		return fmt.Errorf("0x API key not found. Please set GLADIATOR_SHOP_ZEROEX_API_KEY environment variable or create a .gladiator-shop.yaml config file")
	}
	return nil
}

// RequireChain checks that an RPC endpoint is configured, and a wallet when signing
func (c *Config) RequireChain(signing bool) error {
	if c.RPCURL == "" {
		return fmt.Errorf("RPC URL not found. Please set GLADIATOR_SHOP_RPC_URL environment variable or create a .gladiator-shop.yaml config file")
	}
	if signing && c.PrivateKey == "" {
		return fmt.Errorf("private key not found. Please set GLADIATOR_SHOP_PRIVATE_KEY environment variable")
	}
	return nil
}

// Receiver returns the shop receiver contract for the configured network
func (c *Config) Receiver() common.Address {
	if c.Testnet {
		return c.ReceiverTestnet
	}
	return c.ReceiverMainnet
}

// Get returns the global configuration
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		return cfg
	}
	return globalConfig
}

// Set updates the global configuration
func Set(cfg *Config) {
	globalConfig = cfg
}
