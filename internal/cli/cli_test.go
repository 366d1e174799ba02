package cli

import (
	"bytes"
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/upalinski/blake3/internal/config"
)

const (
	emptySum = "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262"
	abcSum   = "6437b3ac38465133ffb63b75273a8db548c558465d79db03fd359c6cd5bd9d85"
	helloSum = "dc5a4edb8240b018124052c330270696f96771a63b45250a5c17d3000e823355"

	testKey = "whats the Elvish word for friend"
)

type output struct {
	stdout, stderr string
}

func run(t *testing.T, stdin string, args ...string) (output, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd(WithLogger(zaptest.NewLogger(t)))
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.ExecuteContext(context.Background())
	return output{stdout: stdout.String(), stderr: stderr.String()}, err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestHashStdin(t *testing.T) {
	out, err := run(t, "abc")
	require.NoError(t, err)
	assert.Equal(t, abcSum+"  -\n", out.stdout)

	out, err = run(t, "", "-")
	require.NoError(t, err)
	assert.Equal(t, emptySum+"  -\n", out.stdout)
}

func TestHashFiles(t *testing.T) {
	dir := t.TempDir()
	empty := writeFile(t, dir, "empty", "")
	abc := writeFile(t, dir, "abc", "abc")
	hello := writeFile(t, dir, "hello", "hello world\n")

	out, err := run(t, "", "--num-threads", "2", empty, abc, hello)
	require.NoError(t, err)
	assert.Equal(t,
		emptySum+"  "+empty+"\n"+
			abcSum+"  "+abc+"\n"+
			helloSum+"  "+hello+"\n",
		out.stdout)
}

func TestHashLargeFileThreaded(t *testing.T) {
	data := bytes.Repeat([]byte("0123456789abcdef"), 300000)
	path := writeFile(t, t.TempDir(), "large", string(data))

	single, err := run(t, "", "--num-threads", "1", "--no-names", path)
	require.NoError(t, err)
	threaded, err := run(t, "", "--num-threads", "8", "--no-names", path)
	require.NoError(t, err)
	piped, err := run(t, string(data), "--num-threads", "8", "--no-names")
	require.NoError(t, err)

	assert.Equal(t, single.stdout, threaded.stdout)
	assert.Equal(t, single.stdout, piped.stdout)
}

func TestOutputFormats(t *testing.T) {
	out, err := run(t, "abc", "--no-names")
	require.NoError(t, err)
	assert.Equal(t, abcSum+"\n", out.stdout)

	out, err = run(t, "abc", "--no-names", "-l", "8")
	require.NoError(t, err)
	assert.Equal(t, abcSum[:16]+"\n", out.stdout)

	out, err = run(t, "hello world\n", "--no-names", "--length", "64")
	require.NoError(t, err)
	assert.Equal(t, "dc5a4edb8240b018124052c330270696f96771a63b45250a5c17d3000e823355"+
		"675dacfc3ed1a06936ecae2697d6baeaa5e423c0efa51d45b322f3f2ca2ec03d\n", out.stdout)

	out, err = run(t, "abc", "--raw", "-l", "4")
	require.NoError(t, err)
	want, _ := hex.DecodeString(abcSum[:8])
	assert.Equal(t, string(want), out.stdout)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("B3SUM_NO_NAMES", "true")
	t.Setenv("B3SUM_LENGTH", "8")
	out, err := run(t, "abc")
	require.NoError(t, err)
	assert.Equal(t, abcSum[:16]+"\n", out.stdout)
}

func TestKeyedAndDeriveKey(t *testing.T) {
	path := writeFile(t, t.TempDir(), "abc", "abc")

	out, err := run(t, testKey, "--keyed", "--no-names", path)
	require.NoError(t, err)
	assert.Equal(t, "157f8b4b104070014ab0b3b7aff364f794e010e92b1c976318e892f380b53406\n", out.stdout)

	out, err = run(t, "abc", "--derive-key", "test context", "--no-names")
	require.NoError(t, err)
	assert.Equal(t, "14efb5ead17fdaa00c491a04d88801b8d7adb4bbabc2d0886717aaa6005d55a0\n", out.stdout)
}

func TestInvalidInvocations(t *testing.T) {
	path := writeFile(t, t.TempDir(), "abc", "abc")

	_, err := run(t, "", "--keyed", "--derive-key", "ctx", path)
	assert.ErrorIs(t, err, config.ErrConflictingModes)

	_, err = run(t, "short key", "--keyed", path)
	assert.ErrorContains(t, err, "key must be exactly 32 bytes")

	_, err = run(t, testKey, "--keyed", "-")
	assert.Error(t, err)

	_, err = run(t, "", "--raw", path, path)
	assert.ErrorContains(t, err, "--raw")

	_, err = run(t, "", "--length", "-1", path)
	assert.ErrorIs(t, err, config.ErrNegativeLength)
}

func TestMissingFile(t *testing.T) {
	dir := t.TempDir()
	abc := writeFile(t, dir, "abc", "abc")
	missing := filepath.Join(dir, "missing")

	out, err := run(t, "", abc, missing)
	assert.ErrorIs(t, err, ErrFailed)
	assert.Equal(t, abcSum+"  "+abc+"\n", out.stdout)
	assert.Contains(t, out.stderr, missing)
}

func TestProgress(t *testing.T) {
	path := writeFile(t, t.TempDir(), "hello", "hello world\n")
	out, err := run(t, "", "--progress", "--no-names", path)
	require.NoError(t, err)
	assert.Equal(t, helloSum+"\n", out.stdout)
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	abc := writeFile(t, dir, "abc", "abc")
	hello := writeFile(t, dir, "hello", "hello world\n")

	sums, err := run(t, "", abc, hello)
	require.NoError(t, err)
	sumFile := writeFile(t, dir, "sums.b3", sums.stdout)

	out, err := run(t, "", "--check", sumFile)
	require.NoError(t, err)
	assert.Equal(t, abc+": OK\n"+hello+": OK\n", out.stdout)

	// check files may also come from stdin, with truncated digests
	out, err = run(t, abcSum[:16]+"  "+abc+"\n", "-c")
	require.NoError(t, err)
	assert.Equal(t, abc+": OK\n", out.stdout)

	require.NoError(t, os.WriteFile(hello, []byte("goodbye world\n"), 0o600))
	out, err = run(t, "", "-c", sumFile)
	assert.ErrorIs(t, err, ErrFailed)
	assert.Equal(t, abc+": OK\n"+hello+": FAILED\n", out.stdout)
	assert.Contains(t, out.stderr, "1 computed checksum(s) did NOT match")
}

func TestCheckMalformedLines(t *testing.T) {
	abc := writeFile(t, t.TempDir(), "abc", "abc")
	out, err := run(t, "not a checksum line\nzz  "+abc+"\n"+abcSum+"  "+abc+"\n", "-c")
	require.NoError(t, err)
	assert.Equal(t, abc+": OK\n", out.stdout)
	assert.Contains(t, out.stderr, "2 line(s) are improperly formatted")
}

func TestParseCheckLine(t *testing.T) {
	sum, path, ok := parseCheckLine(abcSum + "  dir/with  spaces")
	require.True(t, ok)
	assert.Equal(t, "dir/with  spaces", path)
	assert.Equal(t, abcSum, hex.EncodeToString(sum))

	for _, line := range []string{"", abcSum, abcSum + " one-space", "abc  file", "  file", abcSum + "  "} {
		_, _, ok := parseCheckLine(line)
		assert.False(t, ok, "%q", line)
	}
}

func TestRepeatedStdin(t *testing.T) {
	_, err := run(t, "abc", "-", "-")
	assert.ErrorIs(t, err, errRepeatedStdin)

	path := writeFile(t, t.TempDir(), "abc", "abc")
	out, err := run(t, "abc", "-", path)
	require.NoError(t, err)
	assert.Equal(t, abcSum+"  -\n"+abcSum+"  "+path+"\n", out.stdout)
}
