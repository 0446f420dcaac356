package toolrunner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCapturesOutput(t *testing.T) {
	r := New()
	out, err := r.Run(context.Background(), "sh", "-c", "echo hello; echo oops >&2")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out.Stdout)
	assert.Equal(t, "oops\n", out.Stderr)
	assert.Equal(t, 0, out.ExitCode)
}

func TestRunNonZeroExit(t *testing.T) {
	r := New()
	out, err := r.Run(context.Background(), "sh", "-c", "exit 3")
	require.NoError(t, err)
	assert.Equal(t, 3, out.ExitCode)
}

func TestRunTimeout(t *testing.T) {
	r := New(WithTimeout(100 * time.Millisecond))
	out, err := r.Run(context.Background(), "sleep", "5")
	require.NoError(t, err)
	assert.True(t, out.TimedOut)
}

func TestRunMissingBinary(t *testing.T) {
	r := New()
	_, err := r.Run(context.Background(), "definitely-not-a-real-binary")
	assert.Error(t, err)
}

func TestParseTestOutput(t *testing.T) {
	output := `=== RUN   TestThing
--- FAIL: TestThing (0.00s)
    thing_test.go:12: boom
FAIL
ok  	example.com/pkg/a	0.012s
FAIL	example.com/pkg/b	0.034s
`
	summary, failed := ParseTestOutput(output)
	assert.Equal(t, "Some packages failed.", summary)
	assert.Equal(t, []string{"TestThing"}, failed)

	summary, failed = ParseTestOutput("ok  \texample.com/pkg/a\t(cached)\n")
	assert.Equal(t, "All packages passed.", summary)
	assert.Empty(t, failed)
}

func TestParseGitPorcelain(t *testing.T) {
	output := " M internal/agents/standup.go\n?? notes.txt\nR  old.go -> new.go\n"
	files := ParseGitPorcelain(output)
	assert.Equal(t, []string{"internal/agents/standup.go", "notes.txt", "new.go"}, files)

	assert.Empty(t, ParseGitPorcelain(""))
}
