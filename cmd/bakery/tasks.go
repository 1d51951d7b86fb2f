package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bakery/internal/repos"
	"bakery/internal/services"
)

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "Order administration",
}

var ordersDeliverCmd = &cobra.Command{
	Use:   "deliver <order-id>",
	Short: "Mark a Processing order as Delivered",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := repos.OpenDB(cfg.DBDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		svc := services.NewOrderService(repos.NewCartRepo(db, cfg.CartTTL), repos.NewOrderRepo(db), repos.NewUserRepo(db), nil)
		o, err := svc.MarkDelivered(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "order %s is now %s\n", o.ID, o.Status)
		return nil
	},
}

var outboxCmd = &cobra.Command{
	Use:   "outbox",
	Short: "Queued customer notifications",
}

var outboxFlushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Deliver every due notification once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := repos.OpenDB(cfg.DBDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		d, closeNotifier, err := newDispatcher(db, cfg)
		if err != nil {
			return err
		}
		defer closeNotifier()
		n, err := d.RunOnce(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "sent %d notification(s)\n", n)
		return nil
	},
}

var cartsCmd = &cobra.Command{
	Use:   "carts",
	Short: "Session cart maintenance",
}

var cartsPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete carts whose session has expired",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := repos.OpenDB(cfg.DBDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		n, err := repos.NewCartRepo(db, cfg.CartTTL).PurgeExpired(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "purged %d cart(s)\n", n)
		return nil
	},
}

func init() {
	ordersCmd.AddCommand(ordersDeliverCmd)
	outboxCmd.AddCommand(outboxFlushCmd)
	cartsCmd.AddCommand(cartsPurgeCmd)
}
