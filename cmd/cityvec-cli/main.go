// cityvec-cli builds the cached city tables and runs similarity queries from a terminal.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cityvec/internal/bootstrap"
	"github.com/kailas-cloud/cityvec/internal/config"
	logpkg "github.com/kailas-cloud/cityvec/internal/logger"
	"github.com/kailas-cloud/cityvec/internal/usecase/session"
	"github.com/kailas-cloud/cityvec/internal/version"
)

// rootEnv carries the flags shared by every subcommand.
type rootEnv struct {
	env        string
	configPath string
	verbose    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &rootEnv{}
	cmd := &cobra.Command{
		Use:           "cityvec-cli",
		Short:         "Build and query the city embedding index.",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVar(&root.env, "env", config.GetEnv(), "Config environment, reads config/<env>.yaml")
	cmd.PersistentFlags().StringVar(&root.configPath, "config", "", "Explicit config file, overrides --env")
	cmd.PersistentFlags().BoolVarP(&root.verbose, "verbose", "v", false, "Log progress to stderr")

	cmd.AddCommand(getBuildCmd(root))
	cmd.AddCommand(getQueryCmd(root))
	return cmd
}

func (r *rootEnv) loadConfig() (config.Config, error) {
	if r.configPath != "" {
		return config.LoadFile(r.configPath) //nolint:wrapcheck // already descriptive
	}
	return config.Load(r.env) //nolint:wrapcheck // already descriptive
}

// withSession loads config, opens a session and runs fn against it.
func (r *rootEnv) withSession(ctx context.Context, fn func(*config.Config, *session.Session) error) error {
	cfg, err := r.loadConfig()
	if err != nil {
		return err
	}
	logger, err := logpkg.NewCLILogger(r.verbose)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	sess, _, cleanup, err := bootstrap.OpenSession(ctx, &cfg, logger)
	if err != nil {
		logger.Debug("Open failed", zap.Error(err))
		return err //nolint:wrapcheck // carries the op
	}
	defer cleanup()

	return fn(&cfg, sess)
}
