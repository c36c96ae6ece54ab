package main

import (
	"os"

	"github.com/netxfw/forbidlog/cmd/forbidlog/commands"
	"github.com/netxfw/forbidlog/internal/utils/logger"
)

func main() {
	err := commands.RootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}
