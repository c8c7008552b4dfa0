// ldapsh is an interactive LDAP shell with context-aware help.
//
// Ending a line with '?' shows what can be typed next, tab completes
// commands, options and remembered hosts, base DNs and filters, and
// "validate" checks a command without running it.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"al.essio.dev/pkg/shellescape"
	"github.com/spf13/cobra"

	"github.com/psaab/ldapsh/pkg/api"
	"github.com/psaab/ldapsh/pkg/cli"
	"github.com/psaab/ldapsh/pkg/config"
	"github.com/psaab/ldapsh/pkg/directory"
	"github.com/psaab/ldapsh/pkg/logging"
	"github.com/psaab/ldapsh/pkg/overlay"
	"github.com/psaab/ldapsh/pkg/queryhistory"
	"github.com/psaab/ldapsh/pkg/session"
	"github.com/psaab/ldapsh/pkg/validate"
)

// errInvalid is returned by the validate subcommand after it has printed
// the reason.
var errInvalid = errors.New("invalid command")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errInvalid) {
			fmt.Fprintf(os.Stderr, "ldapsh: %v\n", err)
		}
		os.Exit(1)
	}
}

type rootFlags struct {
	configFile    string
	host          string
	port          int
	bindDN        string
	tls           bool
	baseDN        string
	overlayMode   string
	inlineHelp    bool
	metricsListen string
	logLevel      string
}

func newRootCmd() *cobra.Command {
	var f rootFlags
	cmd := &cobra.Command{
		Use:           "ldapsh",
		Short:         "Interactive LDAP shell with context-aware help",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, &f)
			if err != nil {
				return err
			}
			return runShell(cfg, f.configPath())
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&f.configFile, "config", "", "config file (default $"+config.EnvVar+" or ~/.ldapsh/config.yaml)")
	pf.StringVar(&f.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	fl := cmd.Flags()
	fl.StringVar(&f.host, "host", "", "connect to this server at startup")
	fl.IntVar(&f.port, "port", 0, "server port (default 389, or 636 with --tls)")
	fl.StringVar(&f.bindDN, "bind-dn", "", "bind DN for the startup connection")
	fl.BoolVar(&f.tls, "tls", false, "use LDAPS for the startup connection")
	fl.StringVar(&f.baseDN, "base", "", "initial base DN")
	fl.StringVar(&f.overlayMode, "overlay-mode", "", "help overlay mode (auto-dismiss, interactive)")
	fl.BoolVar(&f.inlineHelp, "inline-help", false, "show help as soon as '?' is typed")
	fl.StringVar(&f.metricsListen, "metrics-listen", "", "serve metrics and the session API on host:port")

	cmd.AddCommand(newValidateCmd(), newHistoryCmd(&f))
	return cmd
}

// configPath is the config file in effect: --config, else the default.
func (f *rootFlags) configPath() string {
	if f.configFile != "" {
		return f.configFile
	}
	return config.Path()
}

// loadConfig reads the config file and applies the flags the user set.
func loadConfig(cmd *cobra.Command, f *rootFlags) (*config.Config, error) {
	cfg, err := config.Load(f.configPath())
	if err != nil {
		return nil, err
	}
	applyFlags(cmd, f, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, f *rootFlags, cfg *config.Config) {
	changed := func(name string) bool {
		fl := cmd.Flags().Lookup(name)
		if fl == nil {
			fl = cmd.InheritedFlags().Lookup(name)
		}
		return fl != nil && fl.Changed
	}
	if changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if changed("host") {
		cfg.Connection.Host = f.host
	}
	if changed("port") {
		cfg.Connection.Port = f.port
	}
	if changed("bind-dn") {
		cfg.Connection.BindDN = f.bindDN
	}
	if changed("tls") {
		cfg.Connection.TLS = f.tls
	}
	if changed("base") {
		cfg.Connection.BaseDN = f.baseDN
	}
	if changed("overlay-mode") {
		cfg.Overlay.Mode = f.overlayMode
	}
	if changed("inline-help") {
		cfg.Overlay.Inline = f.inlineHelp
	}
	if changed("metrics-listen") {
		cfg.Metrics.Listen = f.metricsListen
	}
}

func runShell(cfg *config.Config, configPath string) error {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	mode, err := overlay.ParseMode(cfg.Overlay.Mode)
	if err != nil {
		return err
	}

	lw, err := logging.NewLocalLogWriter(logging.LocalLogConfig{
		Path:     cfg.Log.Path,
		MaxSize:  cfg.Log.MaxSize,
		MaxFiles: cfg.Log.MaxFiles,
	})
	if err != nil {
		return err
	}
	defer lw.Close()

	sess := session.New(session.WithHistorySize(cfg.SessionHistorySize))
	logger := logging.New(lw, level, sess.ID())
	slog.SetDefault(logger)
	logger.Info("session started", "config", configPath, "log", lw.Path())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	hist := queryhistory.Open(cfg.QueryHistory.File,
		queryhistory.WithMaxSize(cfg.QueryHistory.Size),
		queryhistory.WithLogger(logger),
	)

	if cfg.Metrics.Listen != "" {
		srv := api.NewServer(api.Config{
			Addr:    cfg.Metrics.Listen,
			Token:   cfg.Metrics.Token,
			Session: sess,
			History: hist,
			Logger:  logger,
		})
		go func() {
			if err := srv.Run(ctx); err != nil {
				logger.Warn("API server stopped", "err", err)
			}
		}()
	}

	sh := cli.New(cli.Options{
		Session: sess,
		History: hist,
		Client:  directory.NewLDAP(logger),
		Defaults: cli.Defaults{
			Host:    cfg.Connection.Host,
			Port:    cfg.Connection.Port,
			BindDN:  cfg.Connection.BindDN,
			TLS:     cfg.Connection.TLS,
			BaseDN:  cfg.Connection.BaseDN,
			Timeout: cfg.Connection.Timeout,
		},
		OverlayMode:  mode,
		DismissAfter: cfg.Overlay.DismissAfter,
		InlineHelp:   cfg.Overlay.Inline,
		HistoryFile:  cfg.HistoryFile,
		Logger:       logger,
	})
	err = sh.Run(ctx)
	logger.Info("session ended", "commands", sess.HistoryLen(), "errors", len(sess.Errors()))
	return err
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <command> [arguments...]",
		Short: "Check a shell command without running it",
		Example: `  ldapsh validate search ldap.example.com dc=example,dc=com uid=jdoe
  ldapsh validate delete ldap.example.com ou=old,dc=example,dc=com --recursive`,
		Args:               cobra.MinimumNArgs(1),
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			line := shellescape.QuoteCommand(args)
			r := validate.New(session.New()).Validate(line)
			validate.Print(cmd.OutOrStdout(), r)
			if !r.OK() {
				return errInvalid
			}
			return nil
		},
	}
}

func newHistoryCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:       "history [host|base_dn|search_filter]",
		Short:     "Show remembered hosts, base DNs and filters",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(queryhistory.Host), string(queryhistory.BaseDN), string(queryhistory.Filter)},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			hist := queryhistory.Open(cfg.QueryHistory.File, queryhistory.WithMaxSize(cfg.QueryHistory.Size))
			categories := queryhistory.Categories
			if len(args) == 1 {
				c := queryhistory.Category(args[0])
				if !c.Valid() {
					return fmt.Errorf("unknown history category %q", args[0])
				}
				categories = []queryhistory.Category{c}
			}
			out := cmd.OutOrStdout()
			for _, c := range categories {
				values := hist.Recent(c, 0)
				if len(categories) > 1 {
					fmt.Fprintf(out, "%s:\n", c)
				}
				if len(values) == 0 {
					fmt.Fprintln(out, "  (empty)")
					continue
				}
				fmt.Fprintf(out, "  %s\n", strings.Join(values, "\n  "))
			}
			return nil
		},
	}
}
