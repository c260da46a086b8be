package guard

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/wardenhq/warden/internal/hooks"
)

// gitRepo creates a minimal .git directory with HEAD on the given branch.
func gitRepo(t *testing.T, branch string) string {
	t.Helper()
	root := t.TempDir()
	gitDir := filepath.Join(root, ".git")
	if err := os.MkdirAll(gitDir, 0755); err != nil {
		t.Fatal(err)
	}
	head := "ref: refs/heads/" + branch + "\n"
	if err := os.WriteFile(filepath.Join(gitDir, "HEAD"), []byte(head), 0644); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestCheckForcePush(t *testing.T) {
	tests := []struct {
		name     string
		branch   string
		command  string
		wantDeny bool
	}{
		{"explicit main", "feature/x", "git push -f origin main", true},
		{"explicit master", "feature/x", "git push --force origin master", true},
		{"refspec to main", "feature/x", "git push -f origin feature/x:main", true},
		{"refs heads form", "feature/x", "git push --force origin refs/heads/main", true},
		{"force with lease to main", "feature/x", "git push --force-with-lease origin main", true},
		{"omitted ref on main", "main", "git push --force", true},
		{"omitted ref on master", "master", "git push -f", true},
		{"feature branch explicit", "main", "git push -f origin feature/x", false},
		{"omitted ref on feature", "feature/x", "git push --force", false},
		{"no force flag", "main", "git push origin main", false},
		{"not a push", "main", "git status --force", false},
		{"mention without force", "main", "echo git push is safe", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := &hooks.Context{ProjectRoot: gitRepo(t, tt.branch)}
			res := CheckForcePush(ctx, bashEvent(tt.command))
			gotDeny := res.Action == hooks.ActionDeny
			if gotDeny != tt.wantDeny {
				t.Errorf("command %q on branch %q: got action=%s reason=%q, wantDeny=%v",
					tt.command, tt.branch, res.Action, res.Reason, tt.wantDeny)
			}
		})
	}
}

func TestCheckForcePush_NoGitDir(t *testing.T) {
	// Without .git/HEAD the defaulted ref is unknown; the guard continues.
	ctx := &hooks.Context{ProjectRoot: t.TempDir()}
	res := CheckForcePush(ctx, bashEvent("git push --force"))
	if res.Action != hooks.ActionContinue {
		t.Errorf("got action=%s, want continue when branch is unknown", res.Action)
	}
}

func TestPushTargetRef(t *testing.T) {
	tests := []struct {
		command string
		want    string
	}{
		{"git push -f origin main", "main"},
		{"git push origin feature/x:main", "main"},
		{"git push origin refs/heads/master", "master"},
		{"git push --force", ""},
		{"git push origin", ""},
	}

	for _, tt := range tests {
		if got := pushTargetRef(tt.command); got != tt.want {
			t.Errorf("pushTargetRef(%q) = %q, want %q", tt.command, got, tt.want)
		}
	}
}
