// Command journal runs the discipline journal CLI and HTTP API.
package main

import (
	"os"

	"github.com/joho/godotenv"

	"discipline-journal/internal/cli"
	"discipline-journal/internal/logging"
)

func main() {
	logger := logging.NewLogger()

	// A .env file is optional; JOURNAL_* variables may come from the shell.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn().Err(err).Msg("Failed to read .env")
	}

	if err := cli.NewRootCmd(logger).Execute(); err != nil {
		logger.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
