package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSrc = `// [jmmc]: -O
// [jmmc]: -Wno-all
import io;
class Sample {
    public static void main(String[] args) {
        int x;
        x = 6 * 7;
        io.println(x);
    }
}
`

func TestDirectiveFlags(t *testing.T) {
	assert.Equal(t, []string{"-O", "-Wno-all"}, directiveFlags(sampleSrc))
	assert.Empty(t, directiveFlags("class A {}"))

	cfg, flags := configFor(sampleSrc)
	assert.True(t, cfg.Optimize)
	assert.Equal(t, []string{"-O", "-Wno-all"}, flags)
}

func TestGoldenUpdateThenPass(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "sample.jmm")
	require.NoError(t, os.WriteFile(file, []byte(sampleSrc), 0644))

	res := testFile(context.Background(), file)
	assert.Equal(t, "SKIP", res.Status)

	*update = true
	res = testFile(context.Background(), file)
	*update = false
	require.Equal(t, "UPDATE", res.Status, res.Message)
	require.FileExists(t, filepath.Join(dir, "sample.jmm.json"))
	assert.Contains(t, res.Got.OLLIR, "42.i32")
	assert.Len(t, res.Got.Fingerprint, 16)

	res = testFile(context.Background(), file)
	assert.Equal(t, "PASS", res.Status, res.Diff)
}

func TestGoldenMismatchFails(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "sample.jmm")
	require.NoError(t, os.WriteFile(file, []byte(sampleSrc), 0644))
	require.NoError(t, os.WriteFile(file+".json", []byte(`{"reports":[],"ollir":"","jasmin":"","fingerprint":""}`), 0644))

	res := testFile(context.Background(), file)
	assert.Equal(t, "FAIL", res.Status)
	assert.Contains(t, res.Diff, "Sample")
}

func TestRunSuiteSkipsDuplicates(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.jmm")
	b := filepath.Join(dir, "b.jmm")
	require.NoError(t, os.WriteFile(a, []byte(sampleSrc), 0644))
	require.NoError(t, os.WriteFile(b, []byte(sampleSrc), 0644))

	results := runSuite(context.Background(), []string{a, b})
	require.Len(t, results, 2)
	assert.Equal(t, a, results[0].File)
	assert.Equal(t, "SKIP", results[0].Status)
	assert.Equal(t, "SKIP", results[1].Status)
	assert.Contains(t, results[1].Message, "identical to "+a)
}
