package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/agrinet/becknmart/config"
	"github.com/agrinet/becknmart/internal/adminapi"
	"github.com/agrinet/becknmart/internal/app"
	"github.com/agrinet/becknmart/internal/webserver"
)

var rootCmd = &cobra.Command{
	Use:   "becknmart",
	Short: "Shared catalog broadcast for agricultural marketplaces",
	Long: `becknmart publishes catalog items to a shared network store and serves
marketplaces that show their own catalog followed by everything published.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

var (
	configPath string
	serverURL  string
	debug      bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "", "talk to a running server instead of the local store")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(catalogCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.AppConfig, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if debug {
		cfg.System.Debug = true
	}
	return cfg, nil
}

// openLocal initializes the application against the configured store
func openLocal() (*app.Application, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	app.InitLogger(cfg)
	a := app.NewApplication(cfg)
	if err := a.Init(); err != nil {
		a.Release()
		return nil, err
	}
	return a, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := openLocal()
	if err != nil {
		return err
	}
	defer a.Release()

	webserver.Init(a.Config(), a)
	adminapi.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return webserver.Listen(gctx)
	})
	err = g.Wait()
	zap.S().Info("becknmart stopped")
	return err
}
