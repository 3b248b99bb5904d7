package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/wasabi0522/sokuho/internal/gitrepo"
	"github.com/wasabi0522/sokuho/internal/ui"
)

func (a *App) queryCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "query [path]",
		Short: "Print the status of one directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) == 1 {
				path = args[0]
			}
			return a.runQuery(cmd, path, jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	addOptionFlags(cmd.Flags())
	return cmd
}

func (a *App) runQuery(cmd *cobra.Command, path string, jsonOutput bool) error {
	opts, err := loadOptions(cmd.Flags(), "")
	if err != nil {
		return err
	}

	var eopts []gitrepo.Option
	if logger := a.logger(); logger != nil {
		eopts = append(eopts, gitrepo.WithLogger(logger))
	}
	engine := gitrepo.NewEngine(opts, eopts...)

	st, err := engine.Status(cmd.Context(), path)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), st)
	}
	if !st.IsRepo {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: not a git repository\n", path)
		return nil
	}
	printTable(cmd.OutOrStdout(), st)
	return nil
}

func printJSON(w io.Writer, st *gitrepo.Status) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(st)
}

var sokuhoTableStyle = table.Style{
	Name: "sokuho",
	Box: table.BoxStyle{
		PaddingLeft:  "",
		PaddingRight: "  ",
	},
	Options: table.Options{
		DrawBorder:      false,
		SeparateHeader:  false,
		SeparateRows:    false,
		SeparateColumns: false,
	},
}

func printTable(w io.Writer, st *gitrepo.Status) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(sokuhoTableStyle)

	tw.AppendRow(table.Row{"workdir", st.Workdir})
	tw.AppendRow(table.Row{"head", st.HeadCommit})
	tw.AppendRow(table.Row{"branch", st.LocalBranch})
	tw.AppendRow(table.Row{"upstream", st.UpstreamBranch})
	tw.AppendRow(table.Row{"remote", st.RemoteURL})
	if st.State != gitrepo.StateNone {
		tw.AppendRow(table.Row{"state", ui.Yellow(st.State.String())})
	}
	tw.AppendRow(table.Row{"staged", dirtyCell(st.HasStaged)})
	tw.AppendRow(table.Row{"unstaged", triCell(st.HasUnstaged)})
	tw.AppendRow(table.Row{"untracked", triCell(st.HasUntracked)})
	tw.AppendRow(table.Row{"ahead/behind", fmt.Sprintf("%d/%d", st.Ahead, st.Behind)})
	if st.FirstTag != "" {
		tw.AppendRow(table.Row{"tag", st.FirstTag})
	}
	tw.Render()
}

func dirtyCell(dirty bool) string {
	if dirty {
		return ui.Red("yes")
	}
	return ui.Green("no")
}

func triCell(t gitrepo.Tristate) string {
	switch t {
	case gitrepo.TriTrue:
		return ui.Red("yes")
	case gitrepo.TriFalse:
		return ui.Green("no")
	default:
		return ui.Yellow("unknown")
	}
}
