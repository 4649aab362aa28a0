package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"
	"github.com/studiowebux/apitest/internal/cli"
	"github.com/studiowebux/apitest/internal/config"
	"github.com/studiowebux/apitest/internal/executor"
	"github.com/studiowebux/apitest/internal/logger"
	"github.com/studiowebux/apitest/internal/mock"
	"github.com/studiowebux/apitest/internal/runner"
	"github.com/studiowebux/apitest/internal/server"
	"github.com/studiowebux/apitest/internal/version"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, cli.ErrTestFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "apitest [spec-file]",
	Short: "apitest - HTTP API test and validation engine",
	Long: `apitest executes one declarative HTTP request, checks the response against
validation rules and prints a structured pass/fail result.

A spec is a JSON object (files may also be .jsonc or .yaml):
  {"url": "http://127.0.0.1:8000/login", "method": "POST",
   "body": {"email": "admin@test.com", "password": "admin123"},
   "validate": {"status_code": 200, "json_path": {"role": "admin"}}}

File extension is optional - 'login' resolves to 'login.json', 'login.yaml', ...

Examples:
  apitest login                          # Run login.json and print the result
  apitest run login.yaml -o yaml         # Print the result as YAML
  cat spec.json | apitest run -          # Read the spec from stdin
  apitest run --spec '{"url": "..."}'    # Inline spec
  apitest run login -q validations       # Print only the diagnostics
  apitest run login --strict             # Exit 1 unless the test passes
  apitest serve                          # Serve POST /v1/tests
  apitest sample-api --defect            # Start the demo auth API with its defect`,
	Version:       version.Version,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && flagSpec == "" {
			return cmd.Help()
		}
		return runCLI(cmd, args)
	},
}

var runCmd = &cobra.Command{
	Use:   "run [spec-file|-]",
	Short: "Run one API test",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCLI(cmd, args)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve API test runs over HTTP",
	Long: `Serve API test runs over HTTP.

  POST /v1/tests   body: spec JSON, response: result JSON
  GET  /healthz
  GET  /metrics    Prometheus metrics`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer log.Sync()

		if flagListen != "" {
			cfg.ListenAddr = flagListen
		}

		r := runner.New(cfg, runner.WithLogger(log.Named("runner")))
		srv := server.New(cfg, r, log.Named("server"))

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.Run(ctx)
	},
}

var sampleAPICmd = &cobra.Command{
	Use:   "sample-api",
	Short: "Serve the demo authentication API",
	Long: `Serve the demo authentication API used as a test target.

  POST /login   {"email": "...", "password": "..."}
  GET  /health

Users: user@test.com / password123, admin@test.com / admin123.
With --defect the password is never checked and every login gets role "user".`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer log.Sync()

		sampleCfg := &mock.Config{}
		if flagSampleConfig != "" {
			if sampleCfg, err = mock.LoadConfig(flagSampleConfig); err != nil {
				return err
			}
		}
		if sampleCfg.Addr == "" {
			sampleCfg.Addr = cfg.SampleAddr
		}
		if flagListen != "" {
			sampleCfg.Addr = flagListen
		}
		if flagDefect {
			sampleCfg.Variant = mock.VariantDefect
		}
		sampleCfg.Logging = cfg.Verbose

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := mock.NewServer(sampleCfg, log.Named("sample-api"))
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return srv.Run(gctx)
		})
		if cfg.Verbose {
			g.Go(func() error {
				<-gctx.Done()
				for _, entry := range srv.GetLogs() {
					log.Debug("served",
						zap.String("method", entry.Method),
						zap.String("path", entry.Path),
						zap.Int("status", entry.Status),
						zap.Duration("duration", entry.Duration))
				}
				return nil
			})
		}
		return g.Wait()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "apitest %s\n", version.Version)
		if !flagCheck {
			return nil
		}

		cfg, _, err := setup()
		if err != nil {
			return err
		}
		release, err := version.CheckForUpdate(cmd.Context(), executor.New(executor.WithUserAgent(cfg.UserAgent)),
			cfg.ReleasesURL, version.Version)
		if err != nil {
			return err
		}
		if release.Newer {
			fmt.Fprintf(cmd.OutOrStdout(), "A newer version is available: %s (%s)\n", release.Version, release.URL)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "You are running the latest version.")
		}
		return nil
	},
}

// Flags for root/run command
var (
	flagSpec    string
	flagOutput  string
	flagFilter  string
	flagQuery   string
	flagStrict  bool
	flagEnvFile string
	flagVerbose bool
)

// Flags for serve and sample-api
var (
	flagListen       string
	flagDefect       bool
	flagSampleConfig string
)

// Flags for version
var flagCheck bool

func init() {
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", "", "Load environment variables from file")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Debug logging on stderr")

	for _, cmd := range []*cobra.Command{rootCmd, runCmd} {
		cmd.Flags().StringVar(&flagSpec, "spec", "", "Inline spec JSON")
		cmd.Flags().StringVarP(&flagOutput, "output", "o", "json", "Output format (json/yaml/text)")
		cmd.Flags().StringVarP(&flagFilter, "filter", "f", "", "JMESPath filter applied to the result")
		cmd.Flags().StringVarP(&flagQuery, "query", "q", "", "JMESPath query applied to the result")
		cmd.Flags().BoolVar(&flagStrict, "strict", false, "Exit with status 1 unless the test passes")
	}

	serveCmd.Flags().StringVarP(&flagListen, "listen", "l", "", "Listen address (default from AT_LISTEN_ADDR)")

	sampleAPICmd.Flags().StringVarP(&flagListen, "listen", "l", "", "Listen address (default from AT_SAMPLE_ADDR)")
	sampleAPICmd.Flags().BoolVar(&flagDefect, "defect", false, "Skip the password check and always return role \"user\"")
	sampleAPICmd.Flags().StringVar(&flagSampleConfig, "config", "", "Sample API config file (yaml/json)")

	versionCmd.Flags().BoolVar(&flagCheck, "check", false, "Check for a newer release")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sampleAPICmd)
	rootCmd.AddCommand(versionCmd)
}

// setup loads the configuration and builds the logger
func setup() (*config.Config, *zap.Logger, error) {
	var envFiles []string
	if flagEnvFile != "" {
		envFiles = append(envFiles, flagEnvFile)
	}

	cfg, err := config.Load(envFiles...)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to load config")
	}
	if flagVerbose {
		cfg.Verbose = true
	}

	log, err := logger.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// runCLI runs one API test in CLI mode
func runCLI(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	opts := cli.RunOptions{
		InlineSpec:   flagSpec,
		OutputFormat: flagOutput,
		Filter:       flagFilter,
		Query:        flagQuery,
		Strict:       flagStrict,
	}
	if len(args) > 0 {
		opts.SpecPath = args[0]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	r := runner.New(cfg, runner.WithLogger(log.Named("runner")))
	_, err = cli.Run(ctx, r, opts, cmd.InOrStdin(), cmd.OutOrStdout())
	return err
}
