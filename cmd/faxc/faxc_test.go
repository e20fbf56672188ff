package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDoMainVersion(t *testing.T) {
	var stdOut, stdErr bytes.Buffer
	code := doMain(&stdOut, &stdErr, []string{"-version"})
	require.Equal(t, 0, code)
	require.Contains(t, stdOut.String(), "faxc "+version)
}

func TestDoMainNoArgsPrintsUsage(t *testing.T) {
	var stdOut, stdErr bytes.Buffer
	code := doMain(&stdOut, &stdErr, []string{})
	require.Equal(t, 1, code)
	require.Contains(t, stdErr.String(), "Usage:")
}

func TestDoMainRejectsUnknownEmitStage(t *testing.T) {
	src := writeTempSource(t)
	var stdOut, stdErr bytes.Buffer
	code := doMain(&stdOut, &stdErr, []string{"-emit", "bogus", src})
	require.Equal(t, 1, code)
	require.Contains(t, stdErr.String(), "unrecognized")
}

func TestDoMainReportsMissingFile(t *testing.T) {
	var stdOut, stdErr bytes.Buffer
	code := doMain(&stdOut, &stdErr, []string{"does-not-exist.fax"})
	require.Equal(t, 1, code)
	require.Contains(t, stdErr.String(), "error:")
}

func TestDoMainEmitsMir(t *testing.T) {
	src := writeTempSource(t)
	var stdOut, stdErr bytes.Buffer
	code := doMain(&stdOut, &stdErr, []string{"-emit", "mir", src})
	require.Equal(t, 0, code)
	require.Contains(t, stdOut.String(), "fn main")
	require.Contains(t, stdOut.String(), "bb0")
}

func TestDoMainEmitsLir(t *testing.T) {
	src := writeTempSource(t)
	var stdOut, stdErr bytes.Buffer
	code := doMain(&stdOut, &stdErr, []string{"-emit", "lir", src})
	require.Equal(t, 0, code)
	require.Contains(t, stdOut.String(), "lir fn main")
}

func TestDoMainEmitsAssembly(t *testing.T) {
	src := writeTempSource(t)
	var stdOut, stdErr bytes.Buffer
	code := doMain(&stdOut, &stdErr, []string{"-emit", "asm", src})
	require.Equal(t, 0, code)
	require.Contains(t, stdOut.String(), "TEXT")
}

func TestDoMainFrontEndStagesReportAnError(t *testing.T) {
	src := writeTempSource(t)
	for _, stage := range []string{"tokens", "ast", "hir"} {
		var stdOut, stdErr bytes.Buffer
		code := doMain(&stdOut, &stdErr, []string{"-emit", stage, src})
		require.Equal(t, 1, code, "stage %s", stage)
	}
}

func writeTempSource(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.fax")
	require.NoError(t, os.WriteFile(path, []byte("fn main() -> Int { 10 + 20 }"), 0o644))
	return path
}
