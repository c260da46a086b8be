package guard

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wardenhq/warden/internal/hooks"
)

// Extensions considered production source for TDD enforcement.
var tddSourceExts = map[string]bool{
	".ts": true, ".tsx": true, ".js": true, ".jsx": true,
	".go": true, ".py": true, ".rb": true, ".java": true, ".rs": true,
}

// checkTDD builds the strict or lenient TDD guard. Strict denies an edit to
// a source file with no corresponding test; lenient continues but injects a
// warning the agent sees alongside the tool output.
func checkTDD(strict bool) Func {
	return func(ctx *hooks.Context, ev *hooks.Event) *hooks.Result {
		if ev.ToolName != "Edit" && ev.ToolName != "Write" {
			return hooks.Continue()
		}

		path := stringField(ev.ToolInput, "file_path")
		if path == "" || !isTDDSource(path) {
			return hooks.Continue()
		}

		if hasTestFile(path) {
			return hooks.Continue()
		}

		msg := fmt.Sprintf(
			"No test file found for %s. Write the test first (e.g. %s), then make the edit.",
			path, testCandidates(path)[0])
		if strict {
			return hooks.Deny(msg)
		}
		return hooks.ContinueWithMessage("TDD warning: " + msg)
	}
}

// isTDDSource reports whether path is a production source file, i.e. a
// recognized extension that is not itself a test.
func isTDDSource(path string) bool {
	ext := filepath.Ext(path)
	if !tddSourceExts[ext] {
		return false
	}

	base := filepath.Base(path)
	if strings.Contains(base, ".test.") || strings.Contains(base, ".spec.") ||
		strings.HasSuffix(base, "_test.go") || strings.HasPrefix(base, "test_") {
		return false
	}

	dir := filepath.ToSlash(filepath.Dir(path))
	for _, seg := range strings.Split(dir, "/") {
		if seg == "__tests__" || seg == "test" || seg == "tests" {
			return false
		}
	}
	return true
}

// testCandidates derives the paths where a test for path may live, in the
// order they are probed.
func testCandidates(path string) []string {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	if ext == ".go" {
		return []string{filepath.Join(dir, stem+"_test.go")}
	}

	return []string{
		filepath.Join(dir, stem+".test"+ext),
		filepath.Join(dir, stem+".spec"+ext),
		filepath.Join(dir, "__tests__", stem+".test"+ext),
		filepath.Join(dir, "__tests__", stem+ext),
		filepath.Join(dir, "test", stem+".test"+ext),
		filepath.Join(dir, "tests", stem+".test"+ext),
	}
}

func hasTestFile(path string) bool {
	for _, candidate := range testCandidates(path) {
		if _, err := os.Stat(candidate); err == nil {
			return true
		}
	}
	return false
}
