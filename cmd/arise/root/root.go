package root

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crach-ad/crachToDo/internal/config"
	"github.com/crach-ad/crachToDo/internal/logging"
	"github.com/crach-ad/crachToDo/internal/ui"
)

const Version = "0.1.0"

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	configPath string
	dbPath     string
	userID     string
	logLevel   string
}

// app is the per-invocation state built in PersistentPreRunE.
type app struct {
	flags globalFlags
	cfg   *config.Config
	log   *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "arise",
		Short:         "Arise: level up by getting things done",
		Long:          "Arise is a local-first task tracker where completing tasks earns XP, levels and hunter ranks.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.flags.configPath, "config", "", "Config file (default ~/.arise/config.yaml)")
	pf.StringVar(&a.flags.dbPath, "db", "", "SQLite database path (overrides config)")
	pf.StringVarP(&a.flags.userID, "user", "u", "", "User id (overrides config)")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "Log level (overrides config)")

	cmd.AddCommand(
		newInitCmd(a),
		newAddCmd(a),
		newEditCmd(a),
		newDoCmd(a),
		newRmCmd(a),
		newListCmd(a),
		newStatusCmd(a),
		newHistoryCmd(a),
		newSweepCmd(a),
		newWatchCmd(a),
		newExportCmd(a),
		newBoardCmd(a),
	)
	return cmd
}

// setup loads config and builds the logger. Flags win over config.
func (a *app) setup() error {
	cfg, err := config.Load(a.flags.configPath)
	if err != nil {
		return err
	}
	if a.flags.dbPath != "" {
		cfg.DBPath = a.flags.dbPath
	}
	if a.flags.userID != "" {
		cfg.UserID = a.flags.userID
	}
	if a.flags.logLevel != "" {
		cfg.Log.Level = a.flags.logLevel
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = log
	return nil
}

func Execute() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(stderr, ui.Bad.Render(ui.IconError+" "+err.Error()))
		return 1
	}
	return 0
}
