package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/praetorian-inc/aegis-recorder/internal/cast"
	"github.com/praetorian-inc/aegis-recorder/internal/config"
	"github.com/praetorian-inc/aegis-recorder/internal/logging"
	"github.com/praetorian-inc/aegis-recorder/internal/session"
)

// Version information - set at build time.
var (
	Version   = "0.3.0"
	GitCommit = "unknown"
)

var (
	cfgPath string
	cfg     *config.Config

	agentName string
	agentID   string
	operator  string
	title     string
	sessionID string
	noRecord  bool

	// exitCode carries the child's exit status out to main, past cobra's
	// cleanup and any deferred closers os.Exit would skip.
	exitCode int
)

// resolveConfigPath returns the --config value, or the default location
// when the flag was not given.
func resolveConfigPath() string {
	if cfgPath != "" {
		return cfgPath
	}
	return config.DefaultConfigPath()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "aegis-record [flags] -- command [args...]",
		Short: "Record Aegis remote-shell sessions as asciicast v2",
		Long: `aegis-record runs a command on a pseudo-terminal, relays it to your
terminal unchanged, and records everything the command prints to a .cast
file under ~/.praetorian/recordings. If recording cannot start, the
command still runs, unrecorded.`,
		Version:       Version + " (" + GitCommit + ")",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(resolveConfigPath())
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logging.Setup(cfg.Logging.Level, cfg.Logging.Sanitize)
			return nil
		},
		RunE: runRecord,
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (default ~/.praetorian/recorder.yaml)")

	root.Flags().StringVar(&agentName, "agent", "", "agent name for the recording header and file name")
	root.Flags().StringVar(&agentID, "agent-id", "", "agent identifier for the recording header")
	root.Flags().StringVar(&operator, "user", "", "operating user for the recording header")
	root.Flags().StringVar(&title, "title", "", "recording title")
	root.Flags().StringVar(&sessionID, "session-id", "", "session identifier (default: random UUID)")
	root.Flags().BoolVar(&noRecord, "no-record", false, "run the command directly without a PTY or recording")

	root.AddCommand(newListCmd())
	root.AddCommand(newCleanCmd())

	return root
}

func runRecord(cmd *cobra.Command, args []string) error {
	// Log level changes apply mid-session; remote shells can stay open for
	// hours.
	if path := resolveConfigPath(); path != "" {
		watcher, err := config.NewWatcher(path, func(c *config.Config) {
			logging.Setup(c.Logging.Level, c.Logging.Sanitize)
		})
		if err != nil {
			slog.Warn("config hot-reload disabled", slog.String("error", err.Error()))
		} else {
			defer watcher.Close()
		}
	}

	meta := cast.Metadata{
		AgentName: agentName,
		AgentID:   agentID,
		User:      operator,
		SessionID: sessionID,
		Shell:     os.Getenv("SHELL"),
		Term:      os.Getenv("TERM"),
		Title:     title,
	}

	opts := []session.Option{
		session.Disabled(noRecord || !cfg.Recording.Enabled),
	}
	if cfg.Recording.Root != "" {
		opts = append(opts, session.WithRecordingRoot(cfg.Recording.Root))
	}

	sess := session.New(args, meta, opts...)

	slog.Debug("starting session",
		slog.String("agent", agentName),
		slog.String("recording_path", sess.RecordingPath()),
	)

	code, err := sess.Run()
	if err != nil {
		return err
	}
	exitCode = code
	return nil
}

// recordingsRoot resolves the configured recordings directory.
func recordingsRoot() string {
	if cfg != nil && cfg.Recording.Root != "" {
		return cfg.Recording.Root
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".praetorian", "recordings")
}
