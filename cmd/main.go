// @title Tabletop API
// @version 1.0
// @description Multi-tenant restaurant order taking.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tabletop/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const version = "1.0.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := config.New()
	var configFile string

	root := &cobra.Command{
		Use:           "tabletop",
		Short:         "Restaurant order taking server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "path to a yaml or toml config file")
	root.PersistentFlags().String("log-level", "", "override log.level")
	_ = v.BindPFlag("log.level", root.PersistentFlags().Lookup("log-level"))

	load := func() (*config.Config, error) {
		return config.Load(v, configFile)
	}

	root.AddCommand(newServeCommand(v, load), newMigrateCommand(load), &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	})
	return root
}

func newServeCommand(v *viper.Viper, load func() (*config.Config, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().String("addr", "", "override http.addr")
	_ = v.BindPFlag("http.addr", cmd.Flags().Lookup("addr"))
	return cmd
}

func newMigrateCommand(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return migrate(cmd.Context(), cfg)
		},
	}
}
