package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"github.com/joshuapare/flistkit/flist"
)

var (
	diffCompact bool
	diffAll     bool
)

func init() {
	cmd := newDiffCmd()
	cmd.Flags().BoolVar(&diffCompact, "compact", false, "Compare compact forms instead of detail text")
	cmd.Flags().BoolVar(&diffAll, "all", false, "Print unchanged lines too")
	rootCmd.AddCommand(cmd)
}

func newDiffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff <flist1> <flist2>",
		Short: "Compare two flists and show differences",
		Long: `The diff command loads two flists, in any supported form, and prints a
line diff of their detail text. Field order matters to the engine, so two
flists holding the same fields in a different order are reported as different.

Example:
  flistctl diff before.flist after.json
  flistctl diff before.flist after.flist --all
  flistctl diff before.flist after.flist --json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(args)
		},
	}
	return cmd
}

// LineDiff is one line of diff output.
type LineDiff struct {
	Action string `json:"action"` // "added", "deleted", "equal"
	Line   string `json:"line"`
}

func runDiff(args []string) error {
	c, _, err := openClient()
	if err != nil {
		return err
	}
	defer c.Close()

	printVerbose("Comparing %s and %s...\n", args[0], args[1])
	a, err := c.LoadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", args[0], err)
	}
	defer a.Release()
	b, err := c.LoadFile(args[1])
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", args[1], err)
	}
	defer b.Release()

	diffs, err := diffFLists(a, b)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(diffs)
	}

	changed := 0
	add := color.New(color.FgGreen).SprintFunc()
	del := color.New(color.FgRed).SprintFunc()
	for _, d := range diffs {
		switch d.Action {
		case "added":
			changed++
			fmt.Fprintln(stdout, add("+ "+d.Line))
		case "deleted":
			changed++
			fmt.Fprintln(stdout, del("- "+d.Line))
		default:
			if diffAll {
				fmt.Fprintln(stdout, "  "+d.Line)
			}
		}
	}
	if changed == 0 {
		printInfo("flists are identical\n")
	}
	return nil
}

// diffFLists renders both flists and diffs them line by line.
func diffFLists(a, b *flist.FList) ([]LineDiff, error) {
	from, err := diffText(a)
	if err != nil {
		return nil, err
	}
	to, err := diffText(b)
	if err != nil {
		return nil, err
	}

	dmp := diffpatch.New()
	ca, cb, lines := dmp.DiffLinesToChars(from, to)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)

	var out []LineDiff
	for _, d := range diffs {
		action := "equal"
		switch d.Type {
		case diffpatch.DiffInsert:
			action = "added"
		case diffpatch.DiffDelete:
			action = "deleted"
		}
		for _, ln := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			out = append(out, LineDiff{Action: action, Line: ln})
		}
	}
	return out, nil
}

// diffText drops the allocation header, which differs between engines.
func diffText(f *flist.FList) (string, error) {
	if diffCompact {
		s, err := f.Compact()
		return s + "\n", err
	}
	s, err := f.Text()
	if err != nil {
		return "", err
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 && strings.HasPrefix(s, "#") {
		s = s[i+1:]
	}
	return s, nil
}
