package cli

import (
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nhath/ezconn/internal/attempts"
	"github.com/nhath/ezconn/internal/config"
	"github.com/nhath/ezconn/internal/db"
	"github.com/nhath/ezconn/internal/logging"
	"github.com/nhath/ezconn/internal/report"
)

// Exit codes returned by the ezconn binary
const (
	ExitOK              = 0
	ExitError           = 1
	ExitConnectionError = 2
)

// Deps carries the process-level collaborators of the commands
type Deps struct {
	Out  io.Writer
	Keys config.KeySource
	// ConfigPath and DataPath default to the XDG locations when empty.
	ConfigPath string
	DataPath   string
}

func defaultDeps() Deps {
	return Deps{Out: os.Stdout, Keys: config.GetMasterKey}
}

// app is the state shared by all subcommands of one invocation
type app struct {
	deps    Deps
	debug   bool
	verbose bool
	logFile string

	logger *zap.Logger
	cfg    *config.Config
	store  *attempts.Store
}

// NewRootCommand constructs the root ezconn command
func NewRootCommand() *cobra.Command {
	return newRootCommand(defaultDeps())
}

func newRootCommand(deps Deps) *cobra.Command {
	a := &app{deps: deps, logger: zap.NewNop()}

	cmd := &cobra.Command{
		Use:           "ezconn",
		Short:         "ezconn opens database connections from saved profiles and reports the outcome",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
	}
	cmd.SetOut(deps.Out)

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.deps.ConfigPath, "config", deps.ConfigPath, "config file (default $XDG_CONFIG_HOME/ezconn/config.toml)")
	flags.StringVar(&a.deps.DataPath, "data", deps.DataPath, "attempt log database (default $XDG_DATA_HOME/ezconn/attempts.db)")
	flags.BoolVar(&a.debug, "debug", false, "enable debug logging")
	flags.StringVar(&a.logFile, "log-file", logging.DefaultFile, "debug log destination")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "show underlying driver errors")

	cmd.AddCommand(newOpenCommand(a))
	cmd.AddCommand(newProfileCommand(a))
	cmd.AddCommand(newHistoryCommand(a))

	return cmd
}

func (a *app) init() error {
	logger, err := logging.New(a.debug, a.logFile)
	if err != nil {
		return err
	}
	a.logger = logger

	path := a.deps.ConfigPath
	if path == "" {
		if path, err = config.ConfigPath(); err != nil {
			return errors.Wrap(err, "resolve config path")
		}
	}
	cfg, err := config.LoadFile(path, a.deps.Keys)
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	a.cfg = cfg
	return nil
}

// run wraps a RunE so the attempt log and logger are released even when
// the command fails; cobra skips post-run hooks on error.
func (a *app) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer a.close()
		return fn(cmd, args)
	}
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("close attempt log", zap.Error(err))
		}
		a.store = nil
	}
	_ = a.logger.Sync()
}

func (a *app) printer() *report.Printer {
	return report.New(a.deps.Out, a.cfg.Theme, a.verbose)
}

// attemptStore opens the attempt log on first use
func (a *app) attemptStore() (*attempts.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	path := a.deps.DataPath
	if path == "" {
		var err error
		if path, err = attempts.DefaultPath(); err != nil {
			return nil, errors.Wrap(err, "resolve data path")
		}
	}
	store, err := attempts.NewStore(path, attempts.WithRetention(time.Duration(a.cfg.RetentionDays)*24*time.Hour))
	if err != nil {
		return nil, err
	}
	a.store = store
	return store, nil
}

// ExitCode maps a command error to the process exit code
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if db.IsConnectionError(err) {
		return ExitConnectionError
	}
	return ExitError
}
