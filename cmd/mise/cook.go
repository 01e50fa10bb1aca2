package main

import (
	"bytes"
	"io"
	"os"

	"github.com/aretw0/mise/internal/cli"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var cookCmd = &cobra.Command{
	Use:   "cook <recipe-id>",
	Short: "Cook a recipe step by step in the terminal",
	Long: `Starts a session for the recipe and shows a live status line until every step is done.

Keys: [space] pause/resume, [s] skip step, [q] stop.
Ctrl+C pauses a running session; pressing it again stops it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd.Context(), cmd, extras{})
		if err != nil {
			return err
		}
		defer a.Close()

		signals := cli.NewSignalManager()
		defer signals.Stop()

		out := io.Writer(os.Stdout)
		opts := cli.CookOptions{
			Profile:    termenv.EnvColorProfile(),
			Interrupts: signals,
			Logger:     a.logger,
		}

		fd := int(os.Stdin.Fd())
		if noKeys, _ := cmd.Flags().GetBool("no-keys"); !noKeys && term.IsTerminal(fd) {
			state, err := term.MakeRaw(fd)
			if err != nil {
				return err
			}
			defer func() { _ = term.Restore(fd, state) }()

			// Raw mode turns off output post-processing.
			out = crlfWriter{os.Stdout}
			opts.In = os.Stdin
			opts.Inline = true
		} else if term.IsTerminal(int(os.Stdout.Fd())) {
			opts.Inline = true
		}
		opts.Out = out

		return cli.HandleExecutionError(cli.Cook(cmd.Context(), a.kitchen, args[0], opts))
	},
}

func init() {
	rootCmd.AddCommand(cookCmd)
	cookCmd.Flags().Bool("no-keys", false, "Do not read keys from stdin")
}

type crlfWriter struct{ w io.Writer }

func (c crlfWriter) Write(p []byte) (int, error) {
	if _, err := c.w.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}
