package guard

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/wardenhq/warden/internal/hooks"
	"github.com/wardenhq/warden/internal/logger"
)

var (
	gitPushRe   = regexp.MustCompile(`\bgit\s+push\b`)
	forceFlagRe = regexp.MustCompile(`\s(-f|--force|--force-with-lease(=\S+)?)(\s|$)`)
)

// CheckForcePush denies force-pushes whose target ref is main or master,
// whether the ref is explicit or defaulted from the current branch.
func CheckForcePush(ctx *hooks.Context, ev *hooks.Event) *hooks.Result {
	if ev.ToolName != "Bash" {
		return hooks.Continue()
	}

	command := stringField(ev.ToolInput, "command")
	if command == "" || !gitPushRe.MatchString(command) || !forceFlagRe.MatchString(command) {
		return hooks.Continue()
	}

	ref := pushTargetRef(command)
	if ref == "" {
		// No explicit ref: push defaults to the current branch.
		ref = currentBranch(ctx.ProjectRoot)
	}

	if ref == "main" || ref == "master" {
		return hooks.Deny(fmt.Sprintf(
			"Force-push to %s is not allowed; rebase your branch and open a regular push instead", ref))
	}

	return hooks.Continue()
}

// pushTargetRef extracts the ref argument of a git push command, normalizing
// refspec and refs/heads forms. Returns "" when no ref was given.
func pushTargetRef(command string) string {
	fields := strings.Fields(command)

	// Walk to the "push" token, then collect non-flag arguments.
	var args []string
	seenPush := false
	for _, f := range fields {
		if !seenPush {
			if f == "push" {
				seenPush = true
			}
			continue
		}
		if strings.HasPrefix(f, "-") {
			continue
		}
		args = append(args, f)
	}

	// args is [remote] or [remote, ref].
	if len(args) < 2 {
		return ""
	}

	ref := args[1]
	// "src:dst" refspec pushes to dst.
	if i := strings.LastIndex(ref, ":"); i >= 0 {
		ref = ref[i+1:]
	}
	ref = strings.TrimPrefix(ref, "refs/heads/")
	return ref
}

// currentBranch reads the checked-out branch from .git/HEAD. Returns "" when
// the file is missing or the repository is in detached HEAD state.
func currentBranch(projectRoot string) string {
	data, err := os.ReadFile(filepath.Join(projectRoot, ".git", "HEAD"))
	if err != nil {
		logger.Debug().Err(err).Msg("Failed to read .git/HEAD")
		return ""
	}

	head := strings.TrimSpace(string(data))
	const prefix = "ref: refs/heads/"
	if !strings.HasPrefix(head, prefix) {
		return ""
	}
	return strings.TrimPrefix(head, prefix)
}
