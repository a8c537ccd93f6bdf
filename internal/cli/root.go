// Package cli implements the hanaihangctl command tree.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Earthondev/hanaihang/internal/app"
	"github.com/Earthondev/hanaihang/internal/config"
	logpkg "github.com/Earthondev/hanaihang/internal/logger"
	"github.com/Earthondev/hanaihang/internal/version"
)

// options are the persistent flags shared by every command.
type options struct {
	cfgFile string
	env     string
}

// NewRootCmd builds the hanaihangctl command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "hanaihangctl",
		Short: "Mall and store search admin CLI",
		Long: `hanaihangctl runs searches and catalog maintenance against the same
store and cache the API server uses.

Example usage:
  hanaihangctl search "central" --lat 13.75 --lng 100.53
  hanaihangctl import config/seed.yaml
  hanaihangctl reindex
  hanaihangctl invalidate search:`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default is config/$ENV.yaml)")
	root.PersistentFlags().StringVar(&opts.env, "env", config.GetEnv(), "environment name used for logging and config lookup")

	root.AddCommand(
		newSearchCmd(opts),
		newImportCmd(opts),
		newReindexCmd(opts),
		newInvalidateCmd(opts),
	)
	return root
}

// open loads configuration and composes the application. The caller closes
// the returned App.
func (o *options) open(ctx context.Context) (*app.App, *zap.Logger, error) {
	var (
		cfg config.Config
		err error
	)
	if o.cfgFile != "" {
		cfg, err = config.LoadFile(o.cfgFile)
	} else {
		cfg, err = config.Load(o.env)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	logger, err := logpkg.NewLogger(o.env, cfg.Logging.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("creating logger: %w", err)
	}

	a, err := app.New(logpkg.ContextWithLogger(ctx, logger), cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	return a, logger, nil
}

// run opens the application, calls fn with a logger-carrying context and
// releases everything afterwards.
func (o *options) run(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, logger, err := o.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		a.Close()
		_ = logger.Sync()
	}()
	return fn(logpkg.ContextWithLogger(ctx, logger), a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
