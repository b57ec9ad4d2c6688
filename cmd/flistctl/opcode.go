package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/joshuapare/flistkit/catalog"
	"github.com/joshuapare/flistkit/flist"
)

var (
	opcodeFlags  string
	opcodeByRef  bool
	opcodeFormat string
	opcodeSeed   []string
)

func init() {
	cmd := newOpcodeCmd()
	cmd.Flags().StringVar(&opcodeFlags, "flags", "", "Opcode flags by name, joined with |")
	cmd.Flags().BoolVar(&opcodeByRef, "by-ref", false, "Let the engine modify the input flist")
	cmd.Flags().StringVar(&opcodeFormat, "format", "text", "Output format (text, compact, xml, json)")
	cmd.Flags().StringArrayVar(&opcodeSeed, "seed", nil, "Create this object before dispatching (repeatable)")
	rootCmd.AddCommand(cmd)
	rootCmd.AddCommand(newLoopbackCmd())
}

func newOpcodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "opcode <opcode> <file>",
		Short: "Send an flist through an opcode on the in-process engine",
		Long: `The opcode command loads an flist and dispatches it to the in-process
engine. The opcode is a name from the catalog or a number. Objects named by
--seed are created first, so READ_OBJ, WRITE_FLDS and SEARCH have data to
work on.

Example:
  flistctl opcode PCM_OP_TEST_LOOPBACK input.flist
  flistctl opcode PCM_OP_CREATE_OBJ account.flist --by-ref
  flistctl opcode PCM_OP_SEARCH search.flist --seed a.flist --seed b.flist
  flistctl opcode 7 search.flist --flags PCM_OPFLG_COUNT_ONLY`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOpcode(cmd.Context(), args[0], args[1])
		},
	}
	return cmd
}

func newLoopbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "loopback <file>",
		Short: "Round-trip an flist through PCM_OP_TEST_LOOPBACK",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOpcode(cmd.Context(), "PCM_OP_TEST_LOOPBACK", args[0])
		},
	}
}

func runOpcode(ctx context.Context, opcode, path string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	c, _, err := openClient()
	if err != nil {
		return err
	}
	defer c.Close()

	code, err := resolveOpcode(c, opcode)
	if err != nil {
		return err
	}
	flags, err := c.Catalog().Flags(opcodeFlags)
	if err != nil {
		return err
	}
	if err := seed(ctx, c, opcodeSeed); err != nil {
		return err
	}

	in, err := c.LoadFile(path)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	defer in.Release()

	printVerbose("Dispatching %s (flags %#x)\n", opcode, flags)
	var out *flist.FList
	if opcodeByRef {
		out, err = in.OpcodeByRef(ctx, code, flags)
	} else {
		out, err = in.Opcode(ctx, code, flags)
	}
	if err != nil {
		return err
	}
	if out == nil {
		printInfo("no output flist\n")
		return nil
	}
	defer out.Release()

	format := opcodeFormat
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

func resolveOpcode(c *flist.Client, opcode string) (int32, error) {
	if code, ok := c.Catalog().Opcode(opcode); ok {
		return code, nil
	}
	n, err := strconv.ParseInt(opcode, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("unknown opcode %q", opcode)
	}
	return int32(n), nil
}

// seed creates one object per file, keeping the poid each file gives.
func seed(ctx context.Context, c *flist.Client, paths []string) error {
	for _, p := range paths {
		f, err := c.LoadFile(p)
		if err != nil {
			return fmt.Errorf("failed to load seed %s: %w", p, err)
		}
		out, err := f.Opcode(ctx, catalog.PCM_OP_CREATE_OBJ, catalog.PCM_OPFLG_USE_POID_GIVEN)
		f.Release()
		if err != nil {
			return fmt.Errorf("failed to create seed %s: %w", p, err)
		}
		printVerbose("Seeded %s\n", p)
		out.Release()
	}
	return nil
}
