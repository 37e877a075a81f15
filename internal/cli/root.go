package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/taxjar-go/internal/config"
	"github.com/samvad-hq/taxjar-go/internal/logger"
	"github.com/samvad-hq/taxjar-go/internal/telemetry"
)

// NewRootCmd builds the taxjar command tree.
func NewRootCmd(env *Env) *cobra.Command {
	var output string

	root := &cobra.Command{
		Use:           "taxjar",
		Short:         "Query the TaxJar API and sync summary rates downstream",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVarP(&output, "output", "o", formatJSON, "output format: json or yaml")

	format := func() (string, error) { return validFormat(output) }

	root.AddCommand(
		listCmd(env, format, "categories", "List product tax categories", func(ctx context.Context, api API) (any, error) {
			return api.Categories(ctx)
		}),
		listCmd(env, format, "regions", "List nexus regions", func(ctx context.Context, api API) (any, error) {
			return api.NexusRegions(ctx)
		}),
		listCmd(env, format, "rates", "List minimum and average summary rates", func(ctx context.Context, api API) (any, error) {
			return api.SummaryRates(ctx)
		}),
		validateCmd(env, format),
		syncCmd(env),
	)
	return root
}

func listCmd(env *Env, format func() (string, error), use, short string, fetch func(context.Context, API) (any, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := format()
			if err != nil {
				return err
			}
			return withAPI(cmd.Context(), env, func(ctx context.Context, api API) error {
				v, err := fetch(ctx, api)
				if err != nil {
					return err
				}
				return render(env.Stdout, f, v)
			})
		},
	}
}

func validateCmd(env *Env, format func() (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:     "validate <vat>",
		Short:   "Validate a VAT identification number",
		Example: "  taxjar validate FR40303265045",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := format()
			if err != nil {
				return err
			}
			return withAPI(cmd.Context(), env, func(ctx context.Context, api API) error {
				v, err := api.ValidateVAT(ctx, args[0])
				if err != nil {
					return err
				}
				return render(env.Stdout, f, v)
			})
		},
	}
}

func syncCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Publish changed summary rates on an interval until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := env.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			log := logger.New(env.Stderr, cfg.LogLevel)
			defer func() { _ = log.Sync() }()
			log.InfoObj("syncer starting", "config", cfg.Redacted())

			shutdown := startTracing(cfg, env, log)
			defer shutdown()

			syncer, err := env.NewSyncer(cmd.Context(), cfg, log)
			if err != nil {
				log.ErrorObj("failed to initialize syncer", "error", err.Error())
				return err
			}
			if err := syncer.Run(cmd.Context()); err != nil {
				return fmt.Errorf("syncer run: %w", err)
			}
			return nil
		},
	}
}

// withAPI loads config, sets up logging and tracing, and runs fn with a client.
func withAPI(ctx context.Context, env *Env, fn func(context.Context, API) error) error {
	cfg, err := env.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(env.Stderr, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	shutdown := startTracing(cfg, env, log)
	defer shutdown()

	return fn(ctx, env.NewAPI(cfg, log))
}

func startTracing(cfg *config.Config, env *Env, log logger.Logger) func() {
	if !cfg.TraceEnabled {
		return func() {}
	}
	shutdown, err := telemetry.InitTracer(cfg.AppName, env.Stderr, log)
	if err != nil {
		log.WarnObj("tracing disabled", "error", err.Error())
		return func() {}
	}
	return func() {
		if err := shutdown(context.Background()); err != nil {
			log.WarnObj("tracer shutdown failed", "error", err.Error())
		}
	}
}
