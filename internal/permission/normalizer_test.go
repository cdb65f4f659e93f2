package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeBasicCommand(t *testing.T) {
	comp := Normalize(Segment{Raw: "ls -la /tmp", Operator: OpNone})

	assert.Equal(t, "ls", comp.Name)
	assert.Equal(t, []string{"-la", "/tmp"}, comp.Args)
	assert.False(t, comp.HadRedirection)
	assert.False(t, comp.ViaNestedShell)
	assert.False(t, comp.FellBack)
}

func TestNormalizeQuotedArguments(t *testing.T) {
	comp := Normalize(Segment{Raw: `git commit -m "fix the bug"`})

	assert.Equal(t, "git", comp.Name)
	assert.Equal(t, []string{"commit", "-m", "fix the bug"}, comp.Args)
}

func TestNormalizeRedirections(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantName string
		wantArgs []string
	}{
		{"stdout", "ls -la > out.txt", "ls", []string{"-la"}},
		{"append", "echo hi >> log.txt", "echo", []string{"hi"}},
		{"stdin", "sort < data.txt", "sort", nil},
		{"stderr", "make 2> err.log", "make", nil},
		{"stderr append", "make 2>> err.log", "make", nil},
		{"both", "cmd &> all.log", "cmd", nil},
		{"both append", "cmd &>> all.log", "cmd", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			comp := Normalize(Segment{Raw: tt.raw})
			assert.True(t, comp.HadRedirection)
			assert.Equal(t, tt.wantName, comp.Name)
			assert.Equal(t, tt.wantArgs, comp.Args)
		})
	}
}

func TestNormalizeQuotedRedirectionIsLiteral(t *testing.T) {
	comp := Normalize(Segment{Raw: `echo "a > b"`})

	assert.False(t, comp.HadRedirection)
	assert.Equal(t, "echo", comp.Name)
	assert.Equal(t, []string{"a > b"}, comp.Args)
}

func TestNormalizeRedirectionOnlyFragment(t *testing.T) {
	comp := Normalize(Segment{Raw: "> file.txt"})

	assert.True(t, comp.Empty())
	assert.True(t, comp.HadRedirection)
}

func TestNormalizeNestedShell(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantName string
		wantArgs []string
	}{
		{"bash -c", `bash -c "rm -rf /tmp/x"`, "rm", []string{"-rf", "/tmp/x"}},
		{"bash -lc", `bash -lc 'git status'`, "git", []string{"status"}},
		{"sh -c", `sh -c "ls -la"`, "ls", []string{"-la"}},
		{"zsh -c", `zsh -c "pwd"`, "pwd", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			comp := Normalize(Segment{Raw: tt.raw})
			assert.True(t, comp.ViaNestedShell)
			assert.Equal(t, tt.wantName, comp.Name)
			assert.Equal(t, tt.wantArgs, comp.Args)
		})
	}
}

func TestNormalizeNestedShellFallback(t *testing.T) {
	// No script string: the invocation name stays the command.
	comp := Normalize(Segment{Raw: "bash -c"})
	assert.False(t, comp.ViaNestedShell)
	assert.Equal(t, "bash", comp.Name)
	assert.Equal(t, []string{"-c"}, comp.Args)

	// Empty script: nothing to unwrap.
	comp = Normalize(Segment{Raw: `bash -c ""`})
	assert.False(t, comp.ViaNestedShell)
	assert.Equal(t, "bash", comp.Name)

	// Plain bash without -c is a normal command.
	comp = Normalize(Segment{Raw: "bash script.sh"})
	assert.False(t, comp.ViaNestedShell)
	assert.Equal(t, "bash", comp.Name)
	assert.Equal(t, []string{"script.sh"}, comp.Args)
}

func TestNormalizeBackgroundOperatorKeepsTail(t *testing.T) {
	comp := Normalize(Segment{Raw: "ls & rm -rf /tmp/x"})

	// The backgrounded tail stays in the word list; nothing after the
	// first command is dropped.
	assert.False(t, comp.FellBack)
	assert.Equal(t, "ls", comp.Name)
	assert.Equal(t, []string{"&", "rm", "-rf", "/tmp/x"}, comp.Args)
	assert.Equal(t, "ls & rm -rf /tmp/x", comp.Signature())
}

func TestNormalizeNestedShellCompoundScript(t *testing.T) {
	comp := Normalize(Segment{Raw: `bash -c "ls && rm -rf /tmp/x"`})
	assert.True(t, comp.ViaNestedShell)
	assert.Equal(t, "ls", comp.Name)
	assert.Equal(t, []string{"&&", "rm", "-rf", "/tmp/x"}, comp.Args)

	comp = Normalize(Segment{Raw: `bash -c "ls; rm x"`})
	assert.True(t, comp.ViaNestedShell)
	assert.Equal(t, "ls", comp.Name)
	assert.Equal(t, []string{";", "rm", "x"}, comp.Args)
}

func TestNormalizeNestedShellWithTrailingWordsStaysOuter(t *testing.T) {
	// Extra words after the script keep the outer invocation whole rather
	// than evaluating only the script.
	comp := Normalize(Segment{Raw: `bash -c 'ls' & rm -rf /tmp/x`})

	assert.False(t, comp.ViaNestedShell)
	assert.Equal(t, "bash", comp.Name)
	assert.Equal(t, []string{"-c", "ls", "&", "rm", "-rf", "/tmp/x"}, comp.Args)
}

func TestNormalizeUnflattenableConstructFallsBack(t *testing.T) {
	comp := Normalize(Segment{Raw: "(ls /tmp)"})

	assert.True(t, comp.FellBack)
	assert.Equal(t, "(ls", comp.Name)
	assert.Equal(t, []string{"/tmp)"}, comp.Args)
}

func TestNormalizeUnbalancedQuoteFallsBack(t *testing.T) {
	comp := Normalize(Segment{Raw: `echo "unterminated`})

	assert.True(t, comp.FellBack)
	assert.Equal(t, "echo", comp.Name)
	assert.Equal(t, []string{`"unterminated`}, comp.Args)
}

func TestNormalizeEmptySegment(t *testing.T) {
	comp := Normalize(Segment{Raw: ""})
	assert.True(t, comp.Empty())
}

func TestNormalizeLineCompound(t *testing.T) {
	components := NormalizeLine("ls -la | grep foo > out.txt")

	require.Len(t, components, 2)
	assert.Equal(t, "ls", components[0].Name)
	assert.Equal(t, OpPipe, components[0].Operator)
	assert.Equal(t, "grep", components[1].Name)
	assert.True(t, components[1].HadRedirection)
	assert.Equal(t, OpNone, components[1].Operator)
}

func TestNormalizeLinePreservesOrder(t *testing.T) {
	components := NormalizeLine("a 1; b 2; c 3")

	require.Len(t, components, 3)
	assert.Equal(t, "a", components[0].Name)
	assert.Equal(t, "b", components[1].Name)
	assert.Equal(t, "c", components[2].Name)
}

func TestComponentSignature(t *testing.T) {
	comp := Component{Name: "git", Args: []string{"status", "--short"}}
	assert.Equal(t, "git status --short", comp.Signature())

	comp = Component{Name: "pwd"}
	assert.Equal(t, "pwd", comp.Signature())
}
