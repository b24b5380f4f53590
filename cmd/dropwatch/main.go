package main

import (
	"github.com/joho/godotenv"

	"dropwatch/internal/cli"
)

func main() {
	// Best effort; a missing .env just means configuration comes from the
	// environment and config file alone.
	_ = godotenv.Load()

	cli.Execute()
}
