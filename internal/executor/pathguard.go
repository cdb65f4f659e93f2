package executor

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/shellbot-ai/shellbot/internal/permission"
)

// fileModifyingCommands modify the filesystem and get their path arguments
// validated against the guard globs.
var fileModifyingCommands = map[string]bool{
	"rm":    true,
	"cp":    true,
	"mv":    true,
	"mkdir": true,
	"touch": true,
	"chmod": true,
	"chown": true,
	"rmdir": true,
	"dd":    true,
	"tee":   true,
}

// PathGuard restricts where file-modifying commands may point. Patterns are
// doublestar globs over absolute paths; `/tmp/**` covers the whole subtree.
// An empty pattern list disables the guard.
type PathGuard struct {
	patterns []string
}

// NewPathGuard compiles the guard. Malformed globs are rejected up front so a
// typo cannot silently open the filesystem.
func NewPathGuard(patterns []string) (*PathGuard, error) {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid path pattern %q", p)
		}
	}
	return &PathGuard{patterns: patterns}, nil
}

// GuardViolationError reports a path argument outside every allowed glob.
type GuardViolationError struct {
	Command string
	Path    string
}

func (e *GuardViolationError) Error() string {
	return fmt.Sprintf("command %q references path outside allowed directories: %s", e.Command, e.Path)
}

// Check validates every file-modifying component of a line. Non-path
// arguments (flags, chmod modes) are skipped the same way path extraction
// skips them.
func (g *PathGuard) Check(components []permission.Component, workDir string) error {
	if len(g.patterns) == 0 {
		return nil
	}

	for _, comp := range components {
		if !fileModifyingCommands[comp.Name] {
			continue
		}
		for _, path := range extractPaths(comp) {
			resolved := resolvePath(path, workDir)
			if !g.allowed(resolved) {
				return &GuardViolationError{Command: comp.Name, Path: resolved}
			}
		}
	}
	return nil
}

func (g *PathGuard) allowed(path string) bool {
	for _, pattern := range g.patterns {
		if ok, err := doublestar.Match(pattern, path); err == nil && ok {
			return true
		}
	}
	return false
}

// extractPaths pulls the path-like arguments out of a component.
func extractPaths(comp permission.Component) []string {
	var paths []string
	for _, arg := range comp.Args {
		if strings.HasPrefix(arg, "-") {
			continue
		}
		// chmod mode arguments are numeric or symbolic, not paths
		if comp.Name == "chmod" && len(arg) > 0 {
			c := arg[0]
			if c >= '0' && c <= '9' || c == 'u' || c == 'g' || c == 'o' || c == 'a' || c == '+' || c == '=' {
				continue
			}
		}
		paths = append(paths, arg)
	}
	return paths
}

// resolvePath makes a path absolute relative to workDir. A leading ~ is left
// alone; it would only be expanded by the shell at run time anyway.
func resolvePath(path, workDir string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	if strings.HasPrefix(path, "~") {
		return path
	}
	return filepath.Clean(filepath.Join(workDir, path))
}
