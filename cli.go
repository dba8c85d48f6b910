package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skridlevsky/linkattrs/tools"
)

var (
	renderSurface   string
	annotateSurface string
	annotateSource  string
	attrsSource     string
	attrsDataHref   bool
)

var renderCmd = &cobra.Command{
	Use:   "render [NOTE]",
	Short: "Render a note and print its annotated HTML",
	Long: `Render a note as the reading view or the live-preview editor, or render
the vault's file explorer, then annotate its links and print the HTML.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRender,
}

var annotateCmd = &cobra.Command{
	Use:   "annotate [HTML]",
	Short: "Annotate an HTML fragment read from the argument or stdin",
	Long: `Annotate the links of an already rendered HTML fragment.

  echo '<a class="internal-link" href="alpha">alpha</a>' | linkattrs annotate --source index.md`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnnotate,
}

var attrsCmd = &cobra.Command{
	Use:   "attrs LINK",
	Short: "Print the attributes a link would receive as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runAttrs,
}

func init() {
	renderCmd.Flags().StringVarP(&renderSurface, "surface", "s", tools.SurfaceReading, "reading, editor or explorer")

	annotateCmd.Flags().StringVarP(&annotateSurface, "surface", "s", tools.SurfaceReading, "reading, div or editor")
	annotateCmd.Flags().StringVar(&annotateSource, "source", "", "Vault path of the note the fragment was rendered from")

	attrsCmd.Flags().StringVar(&attrsSource, "source", "", "Vault path of the note containing the link")
	attrsCmd.Flags().BoolVar(&attrsDataHref, "data-href", false, "Include the target basename as data-href")

	rootCmd.AddCommand(renderCmd, annotateCmd, attrsCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	note := ""
	if len(args) > 0 {
		note = args[0]
	}
	if note == "" && renderSurface != tools.SurfaceExplorer {
		return errors.New("render: NOTE is required unless --surface explorer")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	view, err := a.links.Render(cmd.Context(), note, renderSurface, false, 0)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), view.HTML)
	return nil
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	fragment := readContent(args, cmd.InOrStdin())
	if fragment == "" {
		return errors.New("annotate: no HTML provided")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	out, err := a.links.Annotate(cmd.Context(), fragment, annotateSurface, annotateSource)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

func runAttrs(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	attrs, err := a.links.Attributes(cmd.Context(), args[0], attrsSource, attrsDataHref)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(attrs)
}

// --- Helpers ---

// readContent gets content from positional args or stdin (if piped).
func readContent(args []string, stdin io.Reader) string {
	if len(args) > 0 {
		return strings.Join(args, " ")
	}

	// Only read stdin if it's piped (not a terminal).
	if f, ok := stdin.(*os.File); ok {
		stat, err := f.Stat()
		if err != nil || (stat.Mode()&os.ModeCharDevice) != 0 {
			return ""
		}
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
