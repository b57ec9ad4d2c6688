package main

import (
	"fmt"
	"os"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/spf13/cobra"

	"github.com/joshuapare/flistkit/flist"
)

var (
	patchMerge  bool
	patchFormat string
	patchOutput string
)

func init() {
	cmd := newPatchCmd()
	cmd.Flags().BoolVar(&patchMerge, "merge", false, "Treat the patch as an RFC 7396 merge patch")
	cmd.Flags().StringVar(&patchFormat, "format", "text", "Output format (text, compact, xml, json)")
	cmd.Flags().StringVarP(&patchOutput, "output", "o", "", "Write the result to a file; the extension picks the form")
	rootCmd.AddCommand(cmd)
}

func newPatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patch <file> <patch.json>",
		Short: "Apply a JSON patch to an flist",
		Long: `The patch command applies an RFC 6902 JSON patch (or, with --merge, an
RFC 7396 merge patch) to the JSON form of an flist and rebuilds the flist
from the result. Array elements are addressed by their element id.

Example:
  flistctl patch account.flist rename.json
  flistctl patch account.flist '[{"op":"replace","path":"/PIN_FLD_NAME","value":"x"}]'
  flistctl patch account.flist overrides.json --merge --format compact`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPatch(args)
		},
	}
	return cmd
}

func runPatch(args []string) error {
	c, f, err := loadFList(args[0])
	if err != nil {
		return err
	}
	defer c.Close()
	defer f.Release()

	patch, err := readPatch(args[1])
	if err != nil {
		return err
	}
	out, err := applyPatch(c, f, patch, patchMerge)
	if err != nil {
		return err
	}
	defer out.Release()

	if patchOutput != "" {
		if err := out.SaveFile(patchOutput); err != nil {
			return err
		}
		printInfo("Wrote %s\n", patchOutput)
		return nil
	}

	format := patchFormat
	if jsonOut {
		format = "json"
	}
	text, err := render(out, format)
	if err != nil {
		return err
	}
	if format == "text" {
		text = colorizeText(text)
	}
	fmt.Fprintln(stdout, text)
	return nil
}

// readPatch accepts a file path or an inline JSON document.
func readPatch(arg string) ([]byte, error) {
	if len(arg) > 0 && (arg[0] == '[' || arg[0] == '{') {
		return []byte(arg), nil
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return nil, fmt.Errorf("failed to read patch: %w", err)
	}
	return data, nil
}

// applyPatch patches f's JSON form and returns the rebuilt flist.
func applyPatch(c *flist.Client, f *flist.FList, patch []byte, merge bool) (*flist.FList, error) {
	doc, err := f.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var patched []byte
	if merge {
		patched, err = jsonpatch.MergePatch(doc, patch)
	} else {
		var ops jsonpatch.Patch
		if ops, err = jsonpatch.DecodePatch(patch); err != nil {
			return nil, fmt.Errorf("invalid patch: %w", err)
		}
		patched, err = ops.Apply(doc)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to apply patch: %w", err)
	}
	return c.FromJSON(patched)
}
