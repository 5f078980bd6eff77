package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--log", "error"}, args...))

	err := root.Execute()

	return out.String(), err
}

func lines(s string) []string {
	return strings.Split(strings.TrimSpace(s), "\n")
}

// uniform 4x4 matrix, every pair once with the diagonal
const uniformTriplets = `# binX binY count
0 0 1
0 1 1
0 2 1
0 3 1
1 1 1
1 2 1
1 3 1
2 2 1
2 3 1
3 3 1
`

func TestSpillInspectBalance(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, uniformTriplets, "spill", "--out", dir, "--limit", "4", "--compression", "s2")
	require.NoError(t, err)
	paths := lines(out)
	require.Len(t, paths, 3)
	for _, p := range paths {
		require.True(t, strings.HasSuffix(p, ".bin.s2"))
	}

	out, err = execute(t, "", append([]string{"inspect"}, paths...)...)
	require.NoError(t, err)
	report := lines(out)
	require.Len(t, report, 3)
	require.Equal(t, paths[2]+"\t2\tok", report[2])

	cfgPath := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("balance:\n  percentile: 0\n  threads: 2\n"), 0o600))

	out, err = execute(t, "", append([]string{"balance", "--config", cfgPath, "--bins", "5"}, paths...)...)
	require.NoError(t, err)
	scale := lines(out)
	require.Len(t, scale, 5)
	require.Equal(t, "0\t0.5", scale[0])
	require.Equal(t, "4\tNaN", scale[4])
}

func TestSpill_FromFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "pairs.txt")
	require.NoError(t, os.WriteFile(input, []byte("1 2 3.5\n4 5 6\n"), 0o600))

	out, err := execute(t, "", "spill", "--out", dir, "--limit", "10", input)
	require.NoError(t, err)
	require.Len(t, lines(out), 1)
}

func TestSpill_MalformedLine(t *testing.T) {
	_, err := execute(t, "1 2 3\n1 two 3\n", "spill", "--out", t.TempDir())
	require.ErrorContains(t, err, "line 2")
}

func TestSpill_InvalidCompression(t *testing.T) {
	_, err := execute(t, "", "spill", "--out", t.TempDir(), "--compression", "brotli")
	require.Error(t, err)
}

func TestInspect_ReportsTruncation(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "1 2 3\n4 5 6\n", "spill", "--out", dir)
	require.NoError(t, err)
	path := lines(out)[0]
	require.NoError(t, os.Truncate(path, 20))

	out, err = execute(t, "", "inspect", path)
	require.Error(t, err)
	require.Contains(t, out, "truncated record")
}

func TestRoot_InvalidLogLevel(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--log", "loud", "inspect", "x"})
	require.Error(t, root.Execute())
}
