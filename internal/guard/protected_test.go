package guard

import (
	"testing"

	"github.com/wardenhq/warden/internal/hooks"
)

func writeEvent(tool, path string) *hooks.Event {
	return &hooks.Event{
		Type:      hooks.PreToolUse,
		ToolName:  tool,
		ToolInput: map[string]any{"file_path": path},
	}
}

func TestCheckProtectedFile(t *testing.T) {
	ctx := &hooks.Context{ProjectRoot: t.TempDir()}

	tests := []struct {
		name     string
		tool     string
		path     string
		wantDeny bool
	}{
		{"env production", "Write", "/app/.env.production", true},
		{"env local", "Edit", ".env.local", true},
		{"plain env", "Write", "/app/.env", true},
		{"env example allowed", "Write", ".env.example", false},
		{"env sample allowed", "Edit", "config/.env.sample", false},
		{"credentials json", "Write", "credentials.json", true},
		{"nested credentials", "Edit", "/home/me/credentials.prod.json", true},
		{"secrets yaml", "Write", "deploy/secrets.yaml", true},
		{"service account", "Write", "service-account-key.json", true},
		{"ssh dir", "Write", "/home/me/.ssh/authorized_keys", true},
		{"gnupg dir", "Edit", "/home/me/.gnupg/pubring.kbx", true},
		{"aws dir", "Write", "/home/me/.aws/credentials", true},
		{"gcloud config", "Write", "/home/me/.config/gcloud/application_default_credentials.json", true},
		{"private key", "Write", "/home/me/.ssh/id_rsa", true},
		{"pem file", "Write", "certs/server.pem", true},
		{"regular source", "Write", "src/app.ts", false},
		{"test file", "Edit", "src/app.test.ts", false},
		{"environment module", "Write", "src/environment.ts", false},
		{"missing path", "Write", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := CheckProtectedFile(ctx, writeEvent(tt.tool, tt.path))
			gotDeny := res.Action == hooks.ActionDeny
			if gotDeny != tt.wantDeny {
				t.Errorf("path %q: got action=%s, wantDeny=%v", tt.path, res.Action, tt.wantDeny)
			}
		})
	}
}

func TestCheckProtectedFile_IgnoresReadTools(t *testing.T) {
	ctx := &hooks.Context{ProjectRoot: t.TempDir()}
	res := CheckProtectedFile(ctx, writeEvent("Read", "/home/me/.ssh/id_rsa"))
	if res.Action != hooks.ActionContinue {
		t.Errorf("got action=%s, want continue for Read tool", res.Action)
	}
}
