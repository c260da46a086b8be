package guard

import (
	"fmt"
	"regexp"

	"github.com/wardenhq/warden/internal/hooks"
)

// destructivePattern pairs a compiled pattern with the reason shown on denial.
type destructivePattern struct {
	re     *regexp.Regexp
	reason string
}

// Ordered list of destructive command shapes. First match wins, so the most
// specific patterns come first.
var destructivePatterns = []destructivePattern{
	{
		re:     regexp.MustCompile(`rm\s+(-[a-zA-Z]+\s+)*-[a-zA-Z]*[rR][a-zA-Z]*\s+(-[a-zA-Z]+\s+)*/(\s|$|\*)`),
		reason: "recursive delete of the filesystem root",
	},
	{
		re:     regexp.MustCompile(`rm\s+.*--no-preserve-root`),
		reason: "recursive delete with root preservation disabled",
	},
	{
		re:     regexp.MustCompile(`dd\s+.*\bof=/dev/(sd|hd|nvme|vd|disk)`),
		reason: "raw write to a disk device",
	},
	{
		re:     regexp.MustCompile(`\bmkfs(\.[a-z0-9]+)?\s`),
		reason: "filesystem format command",
	},
	{
		re:     regexp.MustCompile(`:\(\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;?\s*:`),
		reason: "fork bomb",
	},
	{
		re:     regexp.MustCompile(`\b(curl|wget)\b[^|;]*\|\s*(sudo\s+)?(ba|z|da|fi)?sh\b`),
		reason: "piping a download straight into a shell",
	},
	{
		re:     regexp.MustCompile(`\bchmod\s+(-[a-zA-Z]+\s+)*(0?777|a\+rwx)\s+/(\s|$|[a-z])`),
		reason: "world-writable permissions on a root path",
	},
	{
		re:     regexp.MustCompile(`\bchown\s+(-[a-zA-Z]+\s+)*\S+\s+/(\s|$)`),
		reason: "ownership change on the filesystem root",
	},
}

// systemWritePatterns match commands whose mutating verb or redirect actually
// targets a protected system path prefix. Merely reading such a path is fine.
// The capture group is the offending prefix, for the denial message.
var systemWritePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:rm|mv|cp|tee|chmod|chown|ln|touch|truncate)\b[^|;&>]*\s(/(?:etc|usr|bin|sbin|boot|sys|proc)/)`),
	regexp.MustCompile(`\bsed\s+(?:-[a-zA-Z]+\s+)*-i\S*\s[^|;&>]*(/(?:etc|usr|bin|sbin|boot|sys|proc)/)`),
	regexp.MustCompile(`\bdd\b[^|;&]*\bof=(/(?:etc|usr|bin|sbin|boot|sys|proc)/)`),
	regexp.MustCompile(`>>?\s*(/(?:etc|usr|bin|sbin|boot|sys|proc)/)`),
}

// CheckDangerousCommand denies Bash commands matching a fixed list of
// destructive shapes or mutating a protected system path prefix.
func CheckDangerousCommand(ctx *hooks.Context, ev *hooks.Event) *hooks.Result {
	if ev.ToolName != "Bash" {
		return hooks.Continue()
	}

	command := stringField(ev.ToolInput, "command")
	if command == "" {
		return hooks.Continue()
	}

	for _, p := range destructivePatterns {
		if p.re.MatchString(command) {
			return hooks.Deny(fmt.Sprintf("Dangerous command blocked: %s", p.reason))
		}
	}

	for _, re := range systemWritePatterns {
		if m := re.FindStringSubmatch(command); m != nil {
			return hooks.Deny(fmt.Sprintf(
				"Dangerous command blocked: write or delete under %s", m[1]))
		}
	}

	return hooks.Continue()
}
