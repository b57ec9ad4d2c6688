package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
)

const accountText = `0 PIN_FLD_POID           POID [0] 0.0.0.1 /account 42 0
0 PIN_FLD_NAME            STR [0] "Jane"
0 PIN_FLD_STATUS         ENUM [0] 10100
0 PIN_FLD_RESULTS       ARRAY [7] allocated 1, used 1
1     PIN_FLD_AMOUNT   DECIMAL [0] 1.5
`

// writeTestFile writes content to a file in a per-test directory.
func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// captureOutput runs fn with stdout redirected to a buffer. Global flags
// start from their defaults, so fn sets only the ones it needs.
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()
	resetFlags()
	var buf bytes.Buffer
	orig := stdout
	stdout = &buf
	color.NoColor = true
	defer func() {
		stdout = orig
		resetFlags()
	}()
	err := fn()
	return buf.String(), err
}

func resetFlags() {
	verbose, quiet, jsonOut, noColor = false, false, false, false
	optionsPath, pinConf = "", ""
	showFormat, showXMLRoot, showCount = "text", "", false
	diffCompact, diffAll = false, false
	opcodeFlags, opcodeByRef, opcodeFormat, opcodeSeed = "", false, "text", nil
	searchTemplate, searchArgs, searchResults, searchFlags = "", nil, nil, ""
	searchCount, searchBuild, searchSeed = false, false, nil
	patchMerge, patchFormat, patchOutput = false, "text", ""
}

// assertContains checks that output contains all expected strings
func assertContains(t *testing.T, output string, expected []string) {
	t.Helper()
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("output missing expected string %q\nGot: %s", want, output)
		}
	}
}

// assertNotContains checks that output doesn't contain unwanted strings
func assertNotContains(t *testing.T, output string, unwanted []string) {
	t.Helper()
	for _, dont := range unwanted {
		if strings.Contains(output, dont) {
			t.Errorf("output contains unwanted string %q\nGot: %s", dont, output)
		}
	}
}
