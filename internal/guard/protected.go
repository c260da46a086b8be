package guard

import (
	"fmt"
	"regexp"

	"github.com/wardenhq/warden/internal/hooks"
)

// sensitivePathPatterns match files that hold credentials or environment
// secrets. Checked against the target path of Write and Edit calls.
var sensitivePathPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(^|/)\.env(\.production|\.prod|\.local|\.staging)?$`),
	regexp.MustCompile(`(^|/)credentials?(\.[a-zA-Z0-9_-]+)?\.json$`),
	regexp.MustCompile(`(^|/)secrets?(\.[a-zA-Z0-9_-]+)?\.(json|ya?ml)$`),
	regexp.MustCompile(`(^|/)service[-_]?account.*\.json$`),
	regexp.MustCompile(`(^|/)\.ssh(/|$)`),
	regexp.MustCompile(`(^|/)\.gnupg(/|$)`),
	regexp.MustCompile(`(^|/)\.aws(/|$)`),
	regexp.MustCompile(`(^|/)\.config/gcloud(/|$)`),
	regexp.MustCompile(`(^|/)id_(rsa|ed25519|ecdsa|dsa)(\.pub)?$`),
	regexp.MustCompile(`\.(pem|key|p12|pfx)$`),
}

// sensitiveExceptions whitelist harmless files the patterns above would
// otherwise catch, such as env templates checked into the repo.
var sensitiveExceptions = []*regexp.Regexp{
	regexp.MustCompile(`\.env\.(example|sample|template)$`),
}

// CheckProtectedFile denies Write and Edit calls that target credential
// files, secret stores, or key material.
func CheckProtectedFile(ctx *hooks.Context, ev *hooks.Event) *hooks.Result {
	if ev.ToolName != "Write" && ev.ToolName != "Edit" {
		return hooks.Continue()
	}

	path := stringField(ev.ToolInput, "file_path")
	if path == "" {
		return hooks.Continue()
	}

	for _, re := range sensitiveExceptions {
		if re.MatchString(path) {
			return hooks.Continue()
		}
	}

	for _, re := range sensitivePathPatterns {
		if re.MatchString(path) {
			return hooks.Deny(fmt.Sprintf(
				"Protected file: %s matches a sensitive path pattern and must not be modified by the agent", path))
		}
	}

	return hooks.Continue()
}
