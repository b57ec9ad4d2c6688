package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/joshuapare/flistkit/flist"
	"github.com/joshuapare/flistkit/native"
)

var (
	showFormat  string
	showXMLRoot string
	showCount   bool
)

func init() {
	cmd := newShowCmd()
	cmd.Flags().StringVar(&showFormat, "format", "text", "Output format (text, compact, xml, json)")
	cmd.Flags().StringVar(&showXMLRoot, "xml-root", "", "Root element name for XML output")
	cmd.Flags().BoolVar(&showCount, "count", false, "Print field counts instead of the flist")
	rootCmd.AddCommand(cmd)
}

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <file>",
		Short: "Print an flist in another format",
		Long: `The show command reads an flist in any supported form (detail text,
compact, XML or JSON) and prints it in the requested one.

Example:
  flistctl show account.flist
  flistctl show account.flist --format compact
  flistctl show account.json --format xml --xml-root account
  flistctl show account.flist --count`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(args)
		},
	}
	return cmd
}

func runShow(args []string) error {
	c, f, err := loadFList(args[0])
	if err != nil {
		return err
	}
	defer c.Close()
	defer f.Release()

	if showCount {
		return printCounts(f)
	}

	format := showFormat
	if jsonOut {
		format = "json"
	}
	out, err := render(f, format)
	if err != nil {
		return err
	}
	if format == "text" {
		out = colorizeText(out)
	}
	fmt.Fprint(stdout, out)
	if !strings.HasSuffix(out, "\n") {
		fmt.Fprintln(stdout)
	}
	return nil
}

func render(f *flist.FList, format string) (string, error) {
	switch format {
	case "text":
		return f.Text()
	case "compact":
		return f.Compact()
	case "xml":
		return f.XML(native.XMLByName, showXMLRoot)
	case "json":
		return f.JSON()
	default:
		return "", fmt.Errorf("unknown format %q (want text, compact, xml or json)", format)
	}
}

func printCounts(f *flist.FList) error {
	top, err := f.Count(false)
	if err != nil {
		return err
	}
	all, err := f.Count(true)
	if err != nil {
		return err
	}
	fields, err := f.Fields()
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(map[string]int{"fields": len(fields), "count": top, "recursive": all})
	}
	printInfo("Distinct fields: %d\n", len(fields))
	printInfo("Top-level entries: %d\n", top)
	printInfo("All entries: %d\n", all)
	return nil
}

// colorizeText highlights the field name and kind columns of detail text.
func colorizeText(text string) string {
	if color.NoColor {
		return text
	}
	name := color.New(color.FgCyan).SprintFunc()
	kind := color.New(color.FgYellow).SprintFunc()
	header := color.New(color.Faint).SprintFunc()

	lines := strings.Split(text, "\n")
	for i, ln := range lines {
		if strings.HasPrefix(ln, "#") {
			lines[i] = header(ln)
			continue
		}
		tok := strings.Fields(ln)
		if len(tok) < 3 {
			continue
		}
		ln = strings.Replace(ln, tok[1], name(tok[1]), 1)
		lines[i] = strings.Replace(ln, " "+tok[2]+" ", " "+kind(tok[2])+" ", 1)
	}
	return strings.Join(lines, "\n")
}
