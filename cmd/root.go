package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

// App builds the CLI command tree.
type App struct {
	verbose bool
}

// NewApp creates an App.
func NewApp() *App {
	return &App{}
}

// BuildRootCmd builds the complete CLI command tree.
func (a *App) BuildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sokuho",
		Short: "Fast git status daemon for interactive prompts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.Version = version
	rootCmd.SetVersionTemplate(fmt.Sprintf("sokuho version %s\n", version))
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging on stderr")

	rootCmd.AddCommand(a.serveCmd())
	rootCmd.AddCommand(a.queryCmd())
	rootCmd.AddCommand(completionCmd(rootCmd))

	return rootCmd
}

// logger returns the stderr logger for verbose mode, nil otherwise.
// Stdout belongs to the protocol stream and never receives log output.
func (a *App) logger() *slog.Logger {
	if !a.verbose {
		return nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

// Execute creates an App and runs the CLI.
func Execute() {
	app := NewApp()
	cmd := app.BuildRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
