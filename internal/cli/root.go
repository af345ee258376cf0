// Package cli implements the forge-miner command line.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/forge-miner/internal/config"
	"github.com/Sternrassler/forge-miner/pkg/logging"
)

// Version is set at build time.
var Version = "dev"

// app carries state shared by every subcommand of one invocation.
type app struct {
	configFile string
	envFile    string

	cfg    *config.Config
	logger zerolog.Logger

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// Execute runs the root command with the process arguments.
func Execute() error {
	return NewRootCommand(os.Stdin, os.Stdout, os.Stderr).Execute()
}

// NewRootCommand builds the command tree. Results go to stdout; logs and
// run summaries go to stderr.
func NewRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr, logger: zerolog.Nop()}

	root := &cobra.Command{
		Use:           "forge-miner",
		Short:         "Mine GitHub contribution statistics and commit histories",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file (default: forge-miner.yaml in . or ./config)")
	pf.StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	pf.String("token", "", "GitHub token (default: $FORGE_MINER_GITHUB_TOKEN or $GITHUB_TOKEN)")
	pf.String("graphql-url", "", "GitHub GraphQL endpoint")
	pf.String("rest-url", "", "GitHub REST base URL (default: derived from --graphql-url)")
	pf.Int("page-size", 0, "nodes requested per page (1-100)")
	pf.String("redis-addr", "", "Redis address for the page cache, quota summary and stored reports")
	pf.Bool("cache", true, "serve repeated page fetches from Redis")
	pf.Bool("store", true, "persist run reports in Redis")
	pf.Int("retries", 1, "wait-and-retry rounds after a quota signal")
	pf.Duration("backoff-margin", 0, "extra time added to every advised wait")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.Bool("pretty", false, "human-readable log output")
	pf.String("metrics-addr", "", "serve Prometheus metrics on this address during a run")

	root.AddCommand(
		a.contributionsCommand(),
		a.commitsCommand(),
		a.userCommitsCommand(),
		a.rateLimitCommand(),
		a.reportCommand(),
		a.cacheCommand(),
	)
	return root
}

// init loads configuration and sets up logging. Flags left at their
// defaults do not override the other sources.
func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(config.LoadOptions{
		ConfigFile: a.configFile,
		EnvFile:    a.envFile,
		Flags:      cmd.Flags(),
	})
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	a.cfg = cfg
	a.logger = logging.Setup(logging.Config{
		Level:  level,
		Pretty: cfg.Log.Pretty,
		Output: a.stderr,
	})
	return nil
}
