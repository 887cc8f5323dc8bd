package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/danhendrickson/gladiator-shop-ethdenver2024/cmd"
)

func main() {
	// a missing .env is fine, settings can come from the environment or the config file
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: could not load .env file: %v\n", err)
	}

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
