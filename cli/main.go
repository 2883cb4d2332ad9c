package main

import (
	"github.com/BioHazard786/warpmeet/cli/cmd"
	"github.com/BioHazard786/warpmeet/internal/logging"
)

func main() {
	// Initialize logging
	logger := logging.Init()
	defer logger.Sync() //nolint:errcheck

	cmd.Execute()
}
