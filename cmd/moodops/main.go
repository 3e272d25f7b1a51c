package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"moodops/internal/app"
	"moodops/internal/config"
	"moodops/internal/model"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	// Optional .env for local development; a missing file is fine.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "Backup", "Deploy").
func newApp(operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// readPassphrase prompts on stderr and reads a passphrase without echo.
func readPassphrase(prompt string) (string, error) {
	fmt.Fprintf(os.Stderr, "%s: ", prompt)
	pass, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(pass), nil
}

// confirm prompts on stderr and reads a y/N answer from stdin.
func confirm(prompt string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", prompt)
	var answer string
	fmt.Fscanln(os.Stdin, &answer)
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

var rootCmd = &cobra.Command{
	Use:   "moodops",
	Short: "Operational tooling for the mood tracker bot",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		hostID := uuid.New().String()

		cfg := config.NewConfig(hostID, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Host ID: %s\n", hostID)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Host ID:    %s\n", cfg.HostID)
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Backup Dir: %s\n", cfg.BackupDir)
		fmt.Printf("Database:   %s\n", cfg.Database.Type)
		fmt.Printf("Vault:      %s\n", cfg.Vault.Type)
		fmt.Printf("Encryption: %s\n", cfg.Encryption.Type)
		return nil
	},
}

var configEncryptionCmd = &cobra.Command{
	Use:   "encryption",
	Short: "Manage archive encryption",
}

var configEncryptionInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate archive encryption keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SetupEncryption")
		if err != nil {
			return err
		}
		defer a.Close()

		if a.EncryptionConfigured() {
			return fmt.Errorf("encryption keys already exist")
		}

		pass, err := readPassphrase("Passphrase for private key")
		if err != nil {
			return err
		}
		again, err := readPassphrase("Repeat passphrase")
		if err != nil {
			return err
		}
		if pass != again {
			return fmt.Errorf("passphrases do not match")
		}

		if err := a.SetupEncryption(pass); err != nil {
			return fmt.Errorf("setting up encryption: %w", err)
		}

		fmt.Println("Encryption keys generated.")
		return nil
	},
}

// backup command
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Snapshot the bot database",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(model.OpBackup)
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Backup()
		if err != nil {
			a.MarkError()
			return fmt.Errorf("backup failed: %w", err)
		}

		fmt.Printf("Snapshot %s: %d users, %d logs, %d settings\n",
			result.SnapshotID, result.Users, result.Logs, result.Settings)
		fmt.Printf("Archive: %s\n", result.ArchivePath)
		if result.Uploaded {
			encrypted := ""
			if result.Encrypted {
				encrypted = " (encrypted)"
			}
			fmt.Printf("Uploaded to vault%s\n", encrypted)
		}
		return nil
	},
}

// restore command
var restoreCmd = &cobra.Command{
	Use:   "restore [SNAPSHOT_ID]",
	Short: "Restore a snapshot into the bot database",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		a, err := newApp(model.OpRestore)
		if err != nil {
			return err
		}
		defer a.Close()

		snapshotID := ""
		if len(args) > 0 {
			snapshotID = args[0]
		}
		if snapshotID == "" {
			snapshotID, err = a.LatestSnapshotID()
			if err != nil {
				return err
			}
		}

		if !force {
			logs, err := a.CountLogs()
			if err != nil {
				return fmt.Errorf("checking database: %w", err)
			}
			if logs > 0 {
				if !confirm(fmt.Sprintf("Database already has %d logs. Restore %s anyway?", logs, snapshotID)) {
					fmt.Println("Aborted.")
					return nil
				}
			}
		}

		result, err := a.Restore(snapshotID)
		if err != nil {
			a.MarkError()
			return fmt.Errorf("restore failed: %w", err)
		}

		fmt.Printf("Restored snapshot %s\n", result.SnapshotID)
		fmt.Printf("Users:    %d created, %d existing\n", result.UsersCreated, result.UsersSkipped)
		fmt.Printf("Logs:     %d created, %d duplicates skipped\n", result.LogsCreated, result.LogsSkipped)
		fmt.Printf("Settings: %d created, %d existing, %d defaults\n",
			result.SettingsCreated, result.SettingsSkipped, result.DefaultsCreated)
		return nil
	},
}

// fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch SNAPSHOT_ID",
	Short: "Download a snapshot archive from the vault",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Fetch")
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase := ""
		if a.EncryptionConfigured() {
			passphrase, err = readPassphrase("Passphrase for private key")
			if err != nil {
				return err
			}
		}

		if err := a.Fetch(args[0], passphrase); err != nil {
			return fmt.Errorf("fetch failed: %w", err)
		}

		fmt.Printf("Snapshot %s installed locally\n", args[0])
		return nil
	},
}

// deploy command
var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Backup, push, wait for restart, restore",
	RunE: func(cmd *cobra.Command, args []string) error {
		message, _ := cmd.Flags().GetString("message")

		a, err := newApp(model.OpDeploy)
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Deploy(message)
		if err != nil {
			a.MarkError()
			return fmt.Errorf("deploy failed: %w", err)
		}

		if result.RestoreFailed {
			// The push went through; only the data restore needs a retry.
			a.MarkError()
			fmt.Printf("Deploy pushed, but restore failed: %v\n", result.RestoreError)
			fmt.Printf("Recover with: moodops restore %s\n", result.SnapshotID)
			return nil
		}

		fmt.Printf("Deploy complete. Snapshot %s restored", result.SnapshotID)
		if result.Restore != nil {
			fmt.Printf(" (%d users, %d logs created)", result.Restore.UsersCreated, result.Restore.LogsCreated)
		}
		fmt.Println()
		return nil
	},
}

// status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "View database status",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Status")
		if err != nil {
			return err
		}
		defer a.Close()

		status, err := a.Status()
		if err != nil {
			return err
		}

		fmt.Printf("Users:    %d\n", status.Users)
		fmt.Printf("Logs:     %d\n", status.Logs)
		fmt.Printf("Settings: %d\n", status.Settings)

		if latest, err := a.LatestSnapshotID(); err == nil {
			fmt.Printf("Latest snapshot: %s\n", latest)
		} else {
			fmt.Println("No snapshots.")
		}
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("History")
		if err != nil {
			return err
		}
		defer a.Close()

		operations, err := a.History(limit)
		if err != nil {
			return err
		}

		if len(operations) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, op := range operations {
			duration := ""
			if op.FinishedAt.Valid {
				d := op.FinishedAt.Time.Sub(op.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-10s  %s  %-10s  %-10s  %s\n",
				op.ID,
				op.Kind,
				op.StartedAt.Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
				op.Parameters,
			)
		}
		return nil
	},
}

// bot command
var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Telegram bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Bot")
		if err != nil {
			return err
		}
		defer a.Close()

		b, err := a.RunBot()
		if err != nil {
			return fmt.Errorf("starting bot: %w", err)
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		b.Start(ctx)
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configEncryptionCmd)
	configEncryptionCmd.AddCommand(configEncryptionInitCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
	restoreCmd.Flags().BoolP("force", "f", false, "Restore without confirmation")
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(deployCmd)
	deployCmd.Flags().StringP("message", "m", "deploy", "Commit message for the deploy")
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
	rootCmd.AddCommand(botCmd)
}
