package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/yuriy-kovalchuk/alidns-manager/internal/alidns"
	"github.com/yuriy-kovalchuk/alidns-manager/internal/config"
)

// Global flags shared by every subcommand.
var (
	flagConfigPath string
	flagDomain     string
)

func newRootCmd() *cobra.Command {
	zapOpts := zap.Options{Development: true}

	cmd := &cobra.Command{
		Use:     "alidns-manager",
		Short:   "Manage Alibaba Cloud DNS address records",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ctrl.SetLogger(zap.New(zap.UseFlagOptions(&zapOpts)))
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "Config file path (default: $ALIDNS_CONFIG_PATH or configs/alidns.yaml)")
	cmd.PersistentFlags().StringVar(&flagDomain, "domain", "", "Managed domain (overrides the config file)")

	bindZapFlags(cmd.PersistentFlags(), &zapOpts)

	cmd.AddCommand(newCmdVersion())
	cmd.AddCommand(newCmdServe())
	cmd.AddCommand(newCmdController())
	cmd.AddCommand(newCmdRecords())
	return cmd
}

// bindZapFlags exposes the controller-runtime zap flags (--zap-log-level and
// friends) on fs.
func bindZapFlags(fs *pflag.FlagSet, opts *zap.Options) {
	goFlags := flag.NewFlagSet("zap", flag.ContinueOnError)
	opts.BindFlags(goFlags)
	fs.AddGoFlagSet(goFlags)
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flagConfigPath != "" {
		cfg, err = config.LoadConfigFromPath(flagConfigPath)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("unable to load config: %w", err)
	}
	if flagDomain != "" {
		cfg.Domain = strings.TrimSuffix(flagDomain, ".")
	}
	return cfg, nil
}

func newProvider(cfg *config.Config) (*alidns.Client, error) {
	c, err := alidns.New(ctrl.Log.WithName("alidns"), cfg.Settings)
	if err != nil {
		return nil, fmt.Errorf("unable to create DNS client: %w", err)
	}
	return c, nil
}

func main() {
	root := newRootCmd()
	root.SetContext(context.Background())
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
