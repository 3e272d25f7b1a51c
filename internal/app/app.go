package app

import (
	"fmt"
	"os"
	"time"

	"moodops/internal/bot"
	"moodops/internal/config"
	"moodops/internal/database"
	"moodops/internal/deploy"
	"moodops/internal/encryption"
	"moodops/internal/model"
	"moodops/internal/ops"
	"moodops/internal/snapshot"
	"moodops/internal/vault"
)

// App is the application layer between the CLI and the ops.Service.
// It constructs all dependencies from config and manages the DB
// lifecycle on Close.
type App struct {
	cfg       *config.Config
	store     ops.Store
	vault     ops.Vault
	encryptor ops.Encryptor
	service   *ops.Service
	logger    ops.Logger
	op        *CommandOperation
	logFile   *os.File
}

// NewApp creates a fully wired App from the given config.
// operation identifies the CLI command being run (e.g. "Backup", "Deploy").
// The caller must call Close when done.
func NewApp(cfg *config.Config, operation string) (*App, error) {
	store, err := database.NewStoreFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}

	if err := store.CheckMigrations(); err != nil {
		store.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	snapshots, err := snapshot.NewDirStore(cfg.BackupDir)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating snapshot store: %w", err)
	}

	v, err := vault.NewVaultFromConfig(cfg.Vault)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating vault: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	adapter := &slogAdapter{l: logger}
	svc := ops.NewService(store, snapshots, v, enc, cfg.HostID, adapter, ops.RealClock{})

	return &App{
		cfg:       cfg,
		store:     store,
		vault:     v,
		encryptor: enc,
		service:   svc,
		logger:    adapter,
		op:        NewCommandOperation(operation, ""),
		logFile:   logFile,
	}, nil
}

// persistOperation saves the operation record, giving it an
// auto-increment ID. This should only be called for DB-mutating commands.
func (a *App) persistOperation() error {
	if a.op.Persisted() {
		return nil
	}
	dbOp, err := a.store.CreateOperation(a.op.Kind, a.op.Parameters, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	a.op.ID = dbOp.ID
	return nil
}

// MarkError records that the current operation failed. Close stamps the
// final status into the operation record.
func (a *App) MarkError() {
	a.op.Status = model.StatusError
}

// Backup snapshots the database to the backup directory and, when a
// vault is configured, uploads the archive.
func (a *App) Backup() (*ops.BackupResult, error) {
	if err := a.persistOperation(); err != nil {
		return nil, err
	}
	return a.service.Backup()
}

// Restore loads the given snapshot into the database, creating only the
// rows that are missing.
func (a *App) Restore(snapshotID string) (*ops.RestoreResult, error) {
	a.op.Parameters = snapshotID
	if err := a.persistOperation(); err != nil {
		return nil, err
	}
	return a.service.Restore(snapshotID)
}

// Fetch downloads a snapshot archive from the vault and installs it
// locally. passphrase is required when archive encryption is configured.
func (a *App) Fetch(snapshotID, passphrase string) error {
	var decrypt ops.DecryptionContext
	if a.encryptor != nil && a.encryptor.IsConfigured() {
		var err error
		decrypt, err = a.encryptor.Unlock(passphrase)
		if err != nil {
			return fmt.Errorf("unlocking encryption key: %w", err)
		}
	}
	if _, err := a.service.Fetch(snapshotID, decrypt); err != nil {
		return err
	}
	return nil
}

// Status returns live database row counts.
func (a *App) Status() (*ops.DatabaseStatus, error) {
	return a.service.Status()
}

// LatestSnapshotID returns the newest local snapshot ID.
func (a *App) LatestSnapshotID() (string, error) {
	return a.service.LatestSnapshotID()
}

// History returns the most recent recorded operations.
func (a *App) History(limit int) ([]*model.Operation, error) {
	return a.service.History(limit)
}

// CountLogs returns the number of log rows. The restore command uses it
// to warn before restoring into a non-empty database.
func (a *App) CountLogs() (int64, error) {
	return a.store.CountLogs()
}

// Deploy runs the full deploy cycle: backup, commit and push, wait for
// the service to come back, restore.
func (a *App) Deploy(commitMessage string) (*deploy.Result, error) {
	if err := a.persistOperation(); err != nil {
		return nil, err
	}

	git := deploy.NewExecGitRunner(a.cfg.Deploy.WorkDir)
	var probe deploy.Probe
	if a.cfg.Deploy.HealthURL != "" {
		probe = deploy.NewHTTPProbe(a.cfg.Deploy.HealthURL, a.logger)
	} else {
		probe = deploy.NewSleepProbe(a.logger)
	}
	confirmer := deploy.NewStdioConfirmer(os.Stdin, os.Stderr)

	orch := deploy.NewOrchestrator(a.service, git, probe, confirmer, a.logger)
	return orch.Run(deploy.Options{
		Remote:        a.cfg.Deploy.Remote,
		Branch:        a.cfg.Deploy.Branch,
		CommitMessage: commitMessage,
		WaitTimeout:   time.Duration(a.cfg.Deploy.WaitSeconds) * time.Second,
	})
}

// SetupEncryption generates and stores a new archive encryption key pair
// protected by the passphrase.
func (a *App) SetupEncryption(passphrase string) error {
	if a.encryptor == nil {
		return fmt.Errorf("encryption is not configured")
	}
	return a.encryptor.Setup(passphrase)
}

// EncryptionConfigured reports whether archive encryption is set up.
func (a *App) EncryptionConfigured() bool {
	return a.encryptor != nil && a.encryptor.IsConfigured()
}

// RunBot starts the Telegram bot loop. It blocks until the context
// passed by the CLI is cancelled.
func (a *App) RunBot() (*bot.Bot, error) {
	return bot.New(a.cfg.Bot.Token, a.cfg.Bot.AdminUserID, a.service, a.logger)
}

// Close finalizes the operation record and closes all resources.
func (a *App) Close() error {
	var firstErr error

	if a.op.Persisted() {
		if err := a.store.FinishOperation(a.op.ID, a.op.Status, time.Now().UTC()); err != nil {
			firstErr = fmt.Errorf("finishing operation: %w", err)
		}
	}

	if err := a.store.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
