package deploy_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"moodops/internal/deploy"
)

// initRepo creates a throwaway git repository with identity configured.
func initRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	dir := t.TempDir()
	for _, args := range [][]string{
		{"init"},
		{"config", "user.email", "test@example.com"},
		{"config", "user.name", "test"},
	} {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	return dir
}

func TestExecGitRunner_CommitAll(t *testing.T) {
	t.Run("commits a dirty work tree", func(t *testing.T) {
		dir := initRepo(t)
		if err := os.WriteFile(filepath.Join(dir, "bot.py"), []byte("print('hi')\n"), 0644); err != nil {
			t.Fatalf("writing file: %v", err)
		}

		git := deploy.NewExecGitRunner(dir)
		committed, err := git.CommitAll("add bot")
		if err != nil {
			t.Fatalf("CommitAll() error = %v", err)
		}
		if !committed {
			t.Error("CommitAll() = false, want true")
		}
	})

	t.Run("clean tree commits nothing without error", func(t *testing.T) {
		dir := initRepo(t)

		git := deploy.NewExecGitRunner(dir)
		committed, err := git.CommitAll("noop")
		if err != nil {
			t.Fatalf("CommitAll() error = %v", err)
		}
		if committed {
			t.Error("CommitAll() = true on a clean tree")
		}
	})

	t.Run("errors outside a repository", func(t *testing.T) {
		if _, err := exec.LookPath("git"); err != nil {
			t.Skip("git not installed")
		}
		git := deploy.NewExecGitRunner(t.TempDir())
		if _, err := git.CommitAll("x"); err == nil {
			t.Error("CommitAll() outside a repo expected error")
		}
	})
}

func TestExecGitRunner_Push(t *testing.T) {
	dir := initRepo(t)
	git := deploy.NewExecGitRunner(dir)
	// No remote configured; push must surface git's error.
	if err := git.Push("origin", "main"); err == nil {
		t.Error("Push() without a remote expected error")
	}
}
