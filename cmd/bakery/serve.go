package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"bakery/internal/config"
	"bakery/internal/http/handlers"
	applog "bakery/internal/log"
	"bakery/internal/notify"
	"bakery/internal/repos"
	"bakery/internal/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the storefront and the notification dispatcher",
	RunE:  runServe,
}

// openNotifier picks the outbound channel for customer e-mail.
func openNotifier(cfg config.Config) (notify.Notifier, func(), error) {
	switch cfg.Notifier {
	case "", "log":
		return notify.LogNotifier{Currency: cfg.CurrencySymbol}, func() {}, nil
	case "smtp":
		return notify.NewSMTPNotifier(cfg.SMTPAddr, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom, cfg.CurrencySymbol, cfg.SMTPTimeout), func() {}, nil
	case "amqp":
		n, err := notify.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey)
		if err != nil {
			return nil, nil, err
		}
		return n, n.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown notifier %q", cfg.Notifier)
	}
}

func newDispatcher(db *sqlx.DB, cfg config.Config) (*notify.Dispatcher, func(), error) {
	n, closeFn, err := openNotifier(cfg)
	if err != nil {
		return nil, nil, err
	}
	return notify.NewDispatcher(repos.NewOutboxRepo(db), n, cfg.MaxAttempts, cfg.DispatchEvery), closeFn, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	defer applog.Setup(cfg.LogFile).Close()

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	dispatcher, closeNotifier, err := newDispatcher(db, cfg)
	if err != nil {
		return err
	}
	defer closeNotifier()

	auth := services.NewAuthService(repos.NewUserRepo(db), cfg.JWTSecret, cfg.TokenTTL, cfg.BcryptCost)
	deps := handlers.NewDeps(db, cfg, auth, dispatcher)
	app := handlers.NewApp(cfg, deps)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("[http] listening on :%s", cfg.Port)
		return app.Listen(":" + cfg.Port)
	})
	g.Go(func() error { return dispatcher.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
