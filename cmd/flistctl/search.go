package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshuapare/flistkit/flist"
	"github.com/joshuapare/flistkit/pkg/types"
)

var (
	searchTemplate string
	searchArgs     []string
	searchResults  []string
	searchFlags    string
	searchCount    bool
	searchBuild    bool
	searchSeed     []string
)

func init() {
	cmd := newSearchCmd()
	cmd.Flags().StringVar(&searchTemplate, "template", "", "Search template (required)")
	cmd.Flags().StringArrayVar(&searchArgs, "arg", nil, "Argument as FIELD=VALUE, numbered in order (repeatable)")
	cmd.Flags().StringArrayVar(&searchResults, "result", nil, "Field to return; FIELD.SUBFIELD for nested fields (repeatable)")
	cmd.Flags().StringVar(&searchFlags, "search-flags", "", "PIN_FLD_FLAGS value by name, joined with |")
	cmd.Flags().BoolVar(&searchCount, "count", false, "Only count matches")
	cmd.Flags().BoolVar(&searchBuild, "build", false, "Print the search flist instead of running it")
	cmd.Flags().StringArrayVar(&searchSeed, "seed", nil, "Create this object before searching (repeatable)")
	_ = cmd.MarkFlagRequired("template")
	rootCmd.AddCommand(cmd)
}

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Build and run a PCM_OP_SEARCH",
		Long: `The search command builds a search flist from a template, arguments and
a result field list, then runs it against the in-process engine.

Example:
  flistctl search --template "select X from /account where F1 = V1" \
      --arg PIN_FLD_STATUS=10100 --result PIN_FLD_NAME --seed a.flist
  flistctl search --template "select X from /account" --count --seed a.flist
  flistctl search --template "select X from /event where F1 = V1" \
      --arg PIN_FLD_POID=/event --result PIN_FLD_BAL_IMPACTS.PIN_FLD_AMOUNT --build`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runSearch(ctx)
		},
	}
	return cmd
}

func runSearch(ctx context.Context) error {
	c, _, err := openClient()
	if err != nil {
		return err
	}
	defer c.Close()

	spec, err := searchSpec(c)
	if err != nil {
		return err
	}

	if searchBuild {
		f, err := c.BuildSearch(spec)
		if err != nil {
			return err
		}
		defer f.Release()
		return printFList(f)
	}

	if err := seed(ctx, c, searchSeed); err != nil {
		return err
	}
	if searchCount {
		n, err := c.SearchCount(ctx, spec)
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(map[string]int{"count": n})
		}
		fmt.Fprintln(stdout, n)
		return nil
	}
	out, err := c.Search(ctx, spec)
	if err != nil {
		return err
	}
	defer out.Release()
	return printFList(out)
}

func searchSpec(c *flist.Client) (flist.SearchSpec, error) {
	spec := flist.SearchSpec{Template: searchTemplate, CountOnly: searchCount}
	flags, err := c.Catalog().Flags(searchFlags)
	if err != nil {
		return spec, err
	}
	spec.Flags = flags

	for _, a := range searchArgs {
		name, value, ok := strings.Cut(a, "=")
		if !ok {
			return spec, fmt.Errorf("argument %q is not FIELD=VALUE", a)
		}
		v, err := argValue(c, name, value)
		if err != nil {
			return spec, err
		}
		spec.Args = append(spec.Args, flist.SearchArg{Field: name, Value: v})
	}
	for _, r := range searchResults {
		spec.Results = addResult(spec.Results, strings.Split(r, "."))
	}
	return spec, nil
}

// argValue parses numeric kinds; everything else is converted from text
// by the client.
func argValue(c *flist.Client, name, value string) (any, error) {
	fld, err := c.Field(name)
	if err != nil {
		return nil, err
	}
	switch fld.Kind() {
	case types.KindInt, types.KindEnum, types.KindTstamp:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("argument %s: %w", name, err)
		}
		return n, nil
	}
	return value, nil
}

// addResult merges a dotted field path into the result list.
func addResult(list []flist.ResultField, path []string) []flist.ResultField {
	if len(path) == 0 {
		return list
	}
	for i := range list {
		if list[i].Field == path[0] {
			list[i].Fields = addResult(list[i].Fields, path[1:])
			return list
		}
	}
	return append(list, flist.ResultField{Field: path[0], Fields: addResult(nil, path[1:])})
}

func printFList(f *flist.FList) error {
	if jsonOut {
		s, err := f.JSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, s)
		return nil
	}
	s, err := f.Text()
	if err != nil {
		return err
	}
	fmt.Fprint(stdout, colorizeText(s))
	return nil
}
