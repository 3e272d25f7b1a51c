package deploy

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// GitRunner runs the git operations needed by a deploy: staging all
// changes, committing them, and pushing to the deployment remote.
type GitRunner interface {
	// CommitAll stages everything in the work tree and commits it with
	// the given message. A clean work tree is not an error; committed
	// reports whether a commit was actually created.
	CommitAll(message string) (committed bool, err error)
	// Push pushes the given branch to the given remote.
	Push(remote, branch string) error
}

// ExecGitRunner runs git via os/exec in a fixed working directory.
type ExecGitRunner struct {
	workDir string
}

var _ GitRunner = (*ExecGitRunner)(nil)

// NewExecGitRunner creates a git runner operating in workDir. An empty
// workDir means the current directory.
func NewExecGitRunner(workDir string) *ExecGitRunner {
	return &ExecGitRunner{workDir: workDir}
}

func (g *ExecGitRunner) CommitAll(message string) (bool, error) {
	if _, err := g.run("add", "-A"); err != nil {
		return false, fmt.Errorf("staging changes: %w", err)
	}

	// git commit exits non-zero on a clean tree; check first.
	status, err := g.run("status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("checking work tree status: %w", err)
	}
	if strings.TrimSpace(status) == "" {
		return false, nil
	}

	if _, err := g.run("commit", "-m", message); err != nil {
		return false, fmt.Errorf("committing changes: %w", err)
	}
	return true, nil
}

func (g *ExecGitRunner) Push(remote, branch string) error {
	if _, err := g.run("push", remote, branch); err != nil {
		return fmt.Errorf("pushing %s to %s: %w", branch, remote, err)
	}
	return nil
}

func (g *ExecGitRunner) run(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	if g.workDir != "" {
		cmd.Dir = g.workDir
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = strings.TrimSpace(stdout.String())
		}
		if msg != "" {
			return "", fmt.Errorf("git %s: %s: %w", args[0], msg, err)
		}
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}
	return stdout.String(), nil
}
