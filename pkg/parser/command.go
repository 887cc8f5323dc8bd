package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// SwapCommand is a parsed "<amount> <sell> to <buy>" command
type SwapCommand struct {
	Amount string
	Sell   string
	Buy    string
}

var swapPattern = regexp.MustCompile(`^(\d+\.?\d*)\s+([A-Z0-9]+)\s+TO\s+([A-Z0-9]+)$`)

// ParseSwapCommand parses a natural language swap command
// Examples:
//   - "swap 100 USDC to ETH"
//   - "0.5 ETH to LINK"
func ParseSwapCommand(command string) (*SwapCommand, error) {
	command = strings.TrimSpace(strings.ToUpper(command))
	command = strings.TrimPrefix(command, "SWAP ")
	command = strings.Join(strings.Fields(command), " ")

	matches := swapPattern.FindStringSubmatch(command)
	if matches == nil {
		return nil, fmt.Errorf("invalid swap command format. Expected: 'swap <amount> <token> to <token>' (e.g., 'swap 100 USDC to ETH')")
	}

	cmd := &SwapCommand{
		Amount: matches[1],
		Sell:   NormalizeTokenSymbol(matches[2]),
		Buy:    NormalizeTokenSymbol(matches[3]),
	}
	if err := ValidateSwapCommand(cmd); err != nil {
		return nil, err
	}
	return cmd, nil
}

// ValidateSwapCommand validates that a swap command has all required fields
func ValidateSwapCommand(cmd *SwapCommand) error {
	if cmd.Amount == "" {
		return fmt.Errorf("amount is required")
	}
	amount, err := decimal.NewFromString(cmd.Amount)
	if err != nil || !amount.IsPositive() {
		return fmt.Errorf("amount must be greater than 0")
	}
	if cmd.Sell == "" {
		return fmt.Errorf("sell token is required")
	}
	if cmd.Buy == "" {
		return fmt.Errorf("buy token is required")
	}
	if cmd.Sell == cmd.Buy {
		return fmt.Errorf("cannot swap %s to itself", cmd.Sell)
	}
	return nil
}

// NormalizeTokenSymbol normalizes token symbols to standard format
func NormalizeTokenSymbol(symbol string) string {
	symbol = strings.TrimSpace(strings.ToUpper(symbol))

	aliases := map[string]string{
		"ETHER":     "ETH",
		"CHAINLINK": "LINK",
	}

	if normalized, exists := aliases[symbol]; exists {
		return normalized
	}

	return symbol
}
