// Package deploy orchestrates a push-to-deploy cycle: snapshot the
// database, commit and push the work tree, wait for the hosting platform
// to restart the service, then restore the snapshot into the fresh
// database.
package deploy

import (
	"fmt"
	"time"

	"moodops/internal/ops"
)

// Service is the subset of ops.Service the orchestrator needs.
type Service interface {
	Backup() (*ops.BackupResult, error)
	Restore(snapshotID string) (*ops.RestoreResult, error)
	LatestSnapshotID() (string, error)
}

// Confirmer asks the operator a yes/no question. Deploy uses it when the
// backup step fails and the operator must decide whether to continue.
type Confirmer interface {
	Confirm(prompt string) (bool, error)
}

// Step names for deploy progress reporting.
const (
	StepBackup     = "backup"
	StepCommitPush = "commit_push"
	StepWait       = "wait"
	StepRestore    = "restore"
	StepDone       = "done"
)

// Options configures a single deploy run.
type Options struct {
	Remote        string
	Branch        string
	CommitMessage string
	WaitTimeout   time.Duration
}

// Result records what a deploy run did.
type Result struct {
	SnapshotID    string
	BackupFailed  bool
	Committed     bool
	RestoreFailed bool
	RestoreError  error
	Restore       *ops.RestoreResult
}

// Orchestrator drives the deploy state machine.
type Orchestrator struct {
	service   Service
	git       GitRunner
	probe     Probe
	confirmer Confirmer
	logger    ops.Logger
}

// NewOrchestrator creates a deploy orchestrator.
func NewOrchestrator(service Service, git GitRunner, probe Probe, confirmer Confirmer, logger ops.Logger) *Orchestrator {
	return &Orchestrator{
		service:   service,
		git:       git,
		probe:     probe,
		confirmer: confirmer,
		logger:    logger,
	}
}

// Run executes the deploy steps in order. A backup failure is recoverable
// if the operator confirms; a commit/push or wait failure aborts; a
// restore failure is reported in the Result but does not fail the run,
// since the code is already live and the operator can restore manually.
func (o *Orchestrator) Run(opts Options) (*Result, error) {
	result := &Result{}

	o.logger.Info("deploy step", "step", StepBackup)
	backup, err := o.service.Backup()
	if err != nil {
		result.BackupFailed = true
		o.logger.Error("backup failed", "error", err)
		ok, cerr := o.confirmer.Confirm("Backup failed. Continue deploying without a fresh snapshot?")
		if cerr != nil {
			return result, fmt.Errorf("reading confirmation: %w", cerr)
		}
		if !ok {
			return result, fmt.Errorf("deploy aborted: backup failed: %w", err)
		}
		latest, lerr := o.service.LatestSnapshotID()
		if lerr != nil {
			return result, fmt.Errorf("deploy aborted: no snapshot to restore after deploy: %w", lerr)
		}
		result.SnapshotID = latest
		o.logger.Warn("continuing with previous snapshot", "snapshot_id", latest)
	} else {
		result.SnapshotID = backup.SnapshotID
		o.logger.Info("backup complete", "snapshot_id", backup.SnapshotID, "logs", backup.Logs)
	}

	o.logger.Info("deploy step", "step", StepCommitPush)
	committed, err := o.git.CommitAll(opts.CommitMessage)
	if err != nil {
		return result, fmt.Errorf("committing changes: %w", err)
	}
	result.Committed = committed
	if !committed {
		o.logger.Info("work tree clean, nothing to commit")
	}
	if err := o.git.Push(opts.Remote, opts.Branch); err != nil {
		return result, fmt.Errorf("pushing to %s/%s: %w", opts.Remote, opts.Branch, err)
	}

	o.logger.Info("deploy step", "step", StepWait, "timeout", opts.WaitTimeout.String())
	if err := o.probe.Wait(opts.WaitTimeout); err != nil {
		return result, fmt.Errorf("waiting for service: %w", err)
	}

	o.logger.Info("deploy step", "step", StepRestore, "snapshot_id", result.SnapshotID)
	restore, err := o.service.Restore(result.SnapshotID)
	if err != nil {
		// The new code is already live; failing the whole deploy here
		// would only obscure that. Report and let the operator restore
		// by hand.
		result.RestoreFailed = true
		result.RestoreError = err
		o.logger.Error("restore failed after deploy", "snapshot_id", result.SnapshotID, "error", err)
		o.logger.Warn("run manually to recover", "command", fmt.Sprintf("moodops restore %s", result.SnapshotID))
		return result, nil
	}
	result.Restore = restore

	o.logger.Info("deploy step", "step", StepDone,
		"users_created", restore.UsersCreated, "logs_created", restore.LogsCreated)
	return result, nil
}
