package main

import (
	"bytes"
	"path/filepath"
	"runtime"
	"testing"
)

// testScript returns the path to a workload under testdata.
func testScript(name string) string {
	return filepath.Join("testdata", name)
}

// captureOutput runs fn with stdout and stderr redirected to buffers and
// resets the global flags afterwards.
func captureOutput(t *testing.T, fn func() error) (string, string, error) {
	t.Helper()

	origOut, origErr := stdout, stderr
	var out, errOut bytes.Buffer
	stdout, stderr = &out, &errOut
	t.Cleanup(func() {
		stdout, stderr = origOut, origErr
		resetFlags()
	})

	err := fn()
	return out.String(), errOut.String(), err
}

func resetFlags() {
	verbose, quiet, noColor = false, false, true
	logDir, profile = "", ""
	runParallel, runJSON, runMapWidth, runDumpDir = runtime.GOMAXPROCS(0), false, 64, ""
	layoutJSON = false
}
