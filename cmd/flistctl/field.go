package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newFieldCmd())
}

func newFieldCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "field <name-or-number>...",
		Short: "Look up fields in the catalog",
		Long: `The field command resolves field names or numbers against the field
catalog, including any extension file named by --options.

Example:
  flistctl field PIN_FLD_POID
  flistctl field PIN_FLD_NAME PIN_FLD_RESULTS --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runField(args)
		},
	}
	return cmd
}

// FieldInfo describes one catalog entry.
type FieldInfo struct {
	Name   string `json:"name"`
	Number uint32 `json:"number"`
	Kind   string `json:"kind"`
	ID     uint32 `json:"id"`
}

func runField(args []string) error {
	c, _, err := openClient()
	if err != nil {
		return err
	}
	defer c.Close()

	infos := make([]FieldInfo, 0, len(args))
	for _, ident := range args {
		fld, err := c.Field(ident)
		if err != nil {
			return err
		}
		infos = append(infos, FieldInfo{
			Name:   c.Catalog().DisplayName(fld),
			Number: fld.Num(),
			Kind:   fld.Kind().String(),
			ID:     uint32(fld),
		})
	}
	if jsonOut {
		return printJSON(infos)
	}
	name := color.New(color.FgCyan).SprintFunc()
	for _, fi := range infos {
		fmt.Fprintf(stdout, "%s\t%s\tnum=%d\tid=%d\n", name(fi.Name), fi.Kind, fi.Number, fi.ID)
	}
	return nil
}
