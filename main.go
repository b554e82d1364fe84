// Package main provides the entry point for the articlesync client.
package main

import (
	"log/slog"

	"github.com/joho/godotenv"

	"github.com/yourusername/articlesync/cmd"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using system environment variables")
	}

	cmd.Execute()
}
