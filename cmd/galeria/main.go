// Command galeria is a terminal storefront client: browse the catalog,
// manage a cart, and check out against a Galeria API server.
package main

import (
	"os"

	"github.com/galeria-market/galeria-client/internal/app"
	"github.com/galeria-market/galeria-client/internal/common"
	"github.com/galeria-market/galeria-client/internal/config"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// cliApp defers application wiring until flags are parsed.
type cliApp struct {
	configFiles []string
	apiURL      string
	logLevel    string

	app *app.App
}

func (c *cliApp) init() error {
	cfg, err := config.LoadFromFiles(c.configFiles...)
	if err != nil {
		return err
	}
	config.ApplyFlagOverrides(cfg, c.apiURL)
	if c.logLevel != "" {
		cfg.Logging.Level = c.logLevel
	}

	logger := common.NewLoggerFromConfig(common.LoggingConfig{
		Level:    cfg.Logging.Level,
		FilePath: cfg.Logging.FilePath,
	})

	c.app, err = app.New(cfg, logger)
	return err
}

func (c *cliApp) close() {
	if c.app != nil {
		if err := c.app.Close(); err != nil {
			c.app.Logger.Warn().Err(err).Msg("failed to close storage")
		}
	}
}

func newRootCmd() *cobra.Command {
	cli := &cliApp{}

	rootCmd := &cobra.Command{
		Use:           "galeria",
		Short:         "Galeria storefront client: browse, cart, and checkout from the terminal",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return cli.init()
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			cli.close()
		},
	}

	rootCmd.PersistentFlags().StringSliceVarP(&cli.configFiles, "config", "c", nil, "Configuration file path (can be specified multiple times)")
	rootCmd.PersistentFlags().StringVar(&cli.apiURL, "api", "", "Storefront API URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&cli.logLevel, "log-level", "", "Log level (overrides config)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newLoginCmd(cli),
		newLogoutCmd(cli),
		newRegisterCmd(cli),
		newWhoamiCmd(cli),
		newBrowseCmd(cli),
		newNFTCmd(cli),
		newCartCmd(cli),
		newCheckoutCmd(cli),
		newSalesCmd(cli),
	)

	return rootCmd
}
