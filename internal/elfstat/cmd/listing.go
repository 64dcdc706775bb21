package cmd

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/spf13/cobra"

	"elfstat/internal/analysis"
	"elfstat/internal/disasm"
	"elfstat/internal/ui/colorize"
)

// rawColumn is wide enough for the hex of a 10-byte instruction.
const rawColumn = 30

func newListingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "listing [file]",
		Short: "Print the decoded instructions of the code section",
		Long: `Print one line per decoded instruction: address, raw bytes and text.
Addresses are file offsets unless --address vaddr is given. With --partial the
listing ends at the first undecodable instruction.`,
		Example: `
# Listing of .text with load addresses
elfstat listing --address vaddr /bin/true

# AT&T syntax, no colour
ELFSTAT_NO_COLOR=1 elfstat listing --syntax gnu prog.o
  `,
		Args: exactlyOneFile,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := prepare(cmd)
			if err != nil {
				return err
			}

			a, err := analysis.Analyze(analysis.Request{Path: args[0]}, opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			color := isTerminal(out) && colorize.Enabled()
			return writeListing(out, a, opts.Syntax == disasm.SyntaxGNU, color)
		},
	}
}

func writeListing(w io.Writer, a *analysis.Analysis, gnu, color bool) error {
	addrStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	rawStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	badStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	for _, in := range a.Stream {
		addr := fmt.Sprintf("%016x", in.VA)
		raw := fmt.Sprintf("%-*s", rawColumn, hex.EncodeToString(in.Raw))
		text := in.Text

		if color {
			addr = addrStyle.Render(addr)
			raw = rawStyle.Render(raw)
			text = colorize.ColorizeInstruction(text, gnu)
		}

		if _, err := fmt.Fprintf(w, "%s  %s %s\n", addr, raw, text); err != nil {
			return err
		}
	}

	if a.Stopped == nil {
		return nil
	}
	addr := fmt.Sprintf("%016x", a.Stopped.VA)
	note := fmt.Sprintf("(undecodable, %d bytes not listed)", a.Stopped.Remaining)
	if color {
		addr = addrStyle.Render(addr)
		note = badStyle.Render(note)
	}
	_, err := fmt.Fprintf(w, "%s  %s\n", addr, note)
	return err
}
