package tesoro

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func init() { //nolint:gochecknoinits // Using init in cobra command is idomatic
	RootCmd.AddCommand(serveCmd)
	RootCmd.AddCommand(newVersionCmd())
}

var RootCmd = &cobra.Command{
	Use:   "tesoro",
	Short: "Treasury ledger with a cached read path",
	Long:  `Treasury ledger with a cached read path`,
}

func Execute(version string) {
	RootCmd.Version = version
	setVersion()

	// a .env file is optional, flags and TESORO_* variables win anyway
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Debug().Err(err).Msg("failed to load .env file")
	}

	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setVersion() {
	template := fmt.Sprintf("Tesoro Version: %s\n", RootCmd.Version)
	RootCmd.SetVersionTemplate(template)
}
