package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/cardshow/cardshow/internal/psd"
	"github.com/spf13/cobra"
)

func PSDCmd() *cobra.Command {
	p := &cobra.Command{
		Use:   "psd",
		Short: "Photoshop document tools",
	}

	p.AddCommand(&cobra.Command{
		Use:   "inspect <file>",
		Short: "Print the layer manifest of a PSD without importing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			return inspectPSD(f, cmd.OutOrStdout())
		},
	})

	return p
}

func inspectPSD(r io.Reader, out io.Writer) error {
	doc, err := psd.Decode(r)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "canvas %dx%d\n\n", doc.Width, doc.Height)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPATH\tROLE\tBOUNDS\tOPACITY\tBLEND\tVISIBLE")
	for _, e := range psd.Flatten(doc) {
		l := e.Layer
		kind := l.Role
		if l.IsGroup {
			kind = "group"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d,%d %dx%d\t%d\t%s\t%t\n",
			l.ID, l.Path, kind, l.Bounds.X, l.Bounds.Y, l.Bounds.Width, l.Bounds.Height, l.Opacity, l.BlendMode, l.Visible)
	}
	return tw.Flush()
}
