package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/wasabi0522/sokuho/internal/config"
	"github.com/wasabi0522/sokuho/internal/daemon"
	"github.com/wasabi0522/sokuho/internal/gitrepo"
	"github.com/wasabi0522/sokuho/internal/watchdog"
)

func (a *App) serveCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve git status requests from stdin to stdout",
		Long: `Serve reads requests from stdin and writes responses to stdout.

Requests are separated by ASCII 30 and contain two fields separated by
ASCII 31: a request id and a directory path. Each request receives exactly
one response, in request order. The process exits 0 at end of input and
non-zero when the configured liveness check fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runServe(cmd, cfgFile)
		},
	}
	cmd.Flags().StringVar(&cfgFile, "config", "", "Path to a YAML config file")
	addOptionFlags(cmd.Flags())
	return cmd
}

// addOptionFlags registers the daemon option flags shared by serve and
// query. Flag defaults mirror the config defaults; only flags the user
// changed override the loaded configuration.
func addOptionFlags(flags *pflag.FlagSet) {
	flags.Int("lock-fd", -1, "Exit when this fd's advisory lock is no longer held")
	flags.Int("sigwinch-pid", -1, "Exit when SIGWINCH can no longer be delivered to this pid")
	flags.IntP("num-threads", "t", -1, "Workers for the worktree scan; non-positive means one per CPU")
	flags.IntP("dirty-max-index-size", "m", -1, "Report unstaged and untracked as unknown above this index size")
}

// loadOptions layers flag overrides on top of the loaded configuration.
func loadOptions(flags *pflag.FlagSet, cfgFile string) (*config.Options, error) {
	opts, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	for name, dst := range map[string]*int{
		"lock-fd":              &opts.LockFD,
		"sigwinch-pid":         &opts.SigwinchPID,
		"num-threads":          &opts.NumThreads,
		"dirty-max-index-size": &opts.DirtyMaxIndexSize,
	} {
		if flags.Changed(name) {
			v, err := flags.GetInt(name)
			if err != nil {
				return nil, err
			}
			*dst = v
		}
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

func (a *App) runServe(cmd *cobra.Command, cfgFile string) error {
	opts, err := loadOptions(cmd.Flags(), cfgFile)
	if err != nil {
		return err
	}

	var eopts []gitrepo.Option
	var dopts []daemon.Option
	if logger := a.logger(); logger != nil {
		eopts = append(eopts, gitrepo.WithLogger(logger))
		dopts = append(dopts, daemon.WithLogger(logger))
	}
	if checker := watchdog.FromOptions(opts); checker != nil {
		dopts = append(dopts, daemon.WithWatchdog(watchdog.New(checker)))
	}

	engine := gitrepo.NewEngine(opts, eopts...)
	d := daemon.New(engine, dopts...)
	return d.Run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
}
