package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"bakery/internal/config"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "bakery",
	Short: "Bakery storefront server and maintenance tasks",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
	},
}

func main() {
	rootCmd.AddCommand(serveCmd, ordersCmd, outboxCmd, cartsCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
