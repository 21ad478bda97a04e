package cli

import (
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/roach88/memcheck/internal/config"
	"github.com/roach88/memcheck/internal/harness"
)

// caseRow is one line of the list output.
type caseRow struct {
	Index  int    `json:"index"`
	Group  string `json:"group"`
	Name   string `json:"name"`
	Method string `json:"method"`
	Path   string `json:"path"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the contract cases in execution order",
		Long: `List every contract case with the endpoint it calls, in the order a run
executes them. Paths include the API prefix from --config, if given.

Example:
  memcheck list
  memcheck list --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listCases(rootOpts, cmd)
		},
	}
}

func listCases(opts *RootOptions, cmd *cobra.Command) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		_ = out.Error(CodeConfig, "invalid configuration", err.Error())
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	suite := harness.DefaultSuite(harness.SuiteOptions{
		Symbol:    cfg.Symbol,
		Focus:     cfg.Focus,
		APIPrefix: cfg.APIPrefix,
	})

	var rows []caseRow
	for _, g := range suite.Groups {
		for _, tc := range g.Cases {
			rows = append(rows, caseRow{
				Index:  len(rows) + 1,
				Group:  g.Title,
				Name:   tc.Name,
				Method: tc.Endpoint.Method,
				Path:   "/" + tc.Endpoint.Path,
			})
		}
	}

	if out.JSON() {
		return out.Result("ok", rows)
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"#", "GROUP", "CASE", "METHOD", "PATH"})
	table.SetAutoWrapText(false)
	for _, r := range rows {
		table.Append([]string{strconv.Itoa(r.Index), r.Group, r.Name, r.Method, r.Path})
	}
	table.Render()
	return nil
}
