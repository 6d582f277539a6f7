// Package cli implements labelctl, the operator command line for the
// regulation datasets and the response cache.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/labelpadega/backend/config"
)

const version = "2.0.0"

// Exit codes
const (
	ExitSuccess    = 0
	ExitConcerns   = 1
	ExitUsageError = 2
)

type options struct {
	dataDir string
	jsonOut bool

	// exitCode is set by commands that report findings
	exitCode int
}

// Run executes labelctl with args and returns the process exit code
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts := &options{}
	root := newRootCmd(opts)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		return ExitUsageError
	}
	return opts.exitCode
}

func newRootCmd(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:          "labelctl",
		Short:        "Operate the LabelPadega backend",
		Long:         "labelctl seeds and inspects the regulation datasets and maintains the response cache.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "regulation data directory (default from config)")
	root.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "print results as JSON")

	root.AddCommand(
		newSeedCmd(opts),
		newCacheCmd(),
		newCheckCmd(opts),
		newRecallsCmd(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print labelctl version",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "labelctl version %s\n", version)
			},
		},
	)
	return root
}

// resolveDataDir prefers the flag over the configured directory
func (o *options) resolveDataDir() (string, error) {
	if o.dataDir != "" {
		return o.dataDir, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	return cfg.Data.Dir, nil
}

func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
