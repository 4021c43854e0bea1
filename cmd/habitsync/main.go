package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"habitsync/internal/app"
	"habitsync/internal/config"
	"habitsync/internal/encryption"
	"habitsync/internal/habit"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var (
	flagOwner   string
	flagOffline bool
	flagVerbose bool
)

func readConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "AddHabit", "Sync").
func newApp(ctx context.Context, operation string) (*app.App, error) {
	cfg, err := readConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.New(ctx, cfg, operation, app.Options{
		Owner:        flagOwner,
		ForceOffline: flagOffline,
		Verbose:      flagVerbose,
		Passphrase:   app.PassphrasePrompt(false),
	})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

const dateLayout = "2006-01-02"

// parseReminder accepts "YYYY-MM-DD HH:MM" in local time. An empty value
// means no reminder.
func parseReminder(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", value, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid reminder %q (want YYYY-MM-DD HH:MM): %w", value, err)
	}
	return &t, nil
}

func syncState(h *habit.Habit) string {
	switch {
	case h.Synced:
		return "synced "
	case h.IsTemporary():
		return "new    "
	default:
		return "pending"
	}
}

var rootCmd = &cobra.Command{
	Use:          "habitsync",
	Short:        "Offline-first habit tracker",
	SilenceUsage: true,
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

		owner := flagOwner
		if owner == "" {
			owner = os.Getenv("USER")
		}
		deviceID := uuid.New().String()

		cfg := config.NewConfig(owner, deviceID, defaults.BaseDir)
		if err := config.Init(defaults.ConfigPath, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults.ConfigPath)
		fmt.Printf("Owner:     %s\n", owner)
		fmt.Printf("Device ID: %s\n", deviceID)
		fmt.Printf("Base Dir:  %s\n", defaults.BaseDir)
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
		cfg, err := readConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Configuration from %s:\n\n", defaults.ConfigPath)
		fmt.Printf("Owner:        %s\n", cfg.Owner)
		fmt.Printf("Device ID:    %s\n", cfg.DeviceID)
		fmt.Printf("Base Dir:     %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:      %s\n", cfg.LogDir)
		fmt.Printf("Database:     %s\n", cfg.Database.Type)
		fmt.Printf("Remote:       %s (%s)\n", cfg.Remote.Name, cfg.Remote.Type)
		fmt.Printf("Encryption:   %s\n", cfg.Encryption.Type)
		fmt.Printf("Connectivity: %s\n", cfg.Connectivity.Mode)
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a passphrase-protected age key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}

		keys := encryption.NewAgeKeyring(cfg.Encryption)
		if keys.IsConfigured() {
			return fmt.Errorf("keys already exist at %s", cfg.Encryption.PrivateKeyPath)
		}

		passphrase, err := app.PassphrasePrompt(true)()
		if err != nil {
			return err
		}
		if err := keys.Setup(passphrase); err != nil {
			return fmt.Errorf("generating keys: %w", err)
		}

		fmt.Printf("Keys written to %s\n", cfg.Encryption.PrivateKeyPath)
		if cfg.Encryption.Type != "age" {
			fmt.Println(`Set type = "age" under [encryption] to encrypt remote documents.`)
		}
		return nil
	},
}

// habit command
var habitCmd = &cobra.Command{
	Use:   "habit",
	Short: "Manage habits",
}

var habitAddCmd = &cobra.Command{
	Use:   "add TITLE",
	Short: "Create a habit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		description, _ := cmd.Flags().GetString("description")
		remindAt, _ := cmd.Flags().GetString("remind")

		reminder, err := parseReminder(remindAt)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		a, err := newApp(ctx, "AddHabit")
		if err != nil {
			return err
		}
		defer a.Close()

		h, err := a.AddHabit(ctx, habit.Input{Title: args[0], Description: description, ReminderAt: reminder})
		if err != nil {
			return err
		}

		if h.IsTemporary() {
			fmt.Printf("Created %s (offline, will sync later)\n", h.ID)
		} else {
			fmt.Printf("Created %s\n", h.ID)
		}
		return nil
	},
}

var habitEditCmd = &cobra.Command{
	Use:   "edit ID",
	Short: "Edit a habit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, "EditHabit")
		if err != nil {
			return err
		}
		defer a.Close()

		current, err := a.GetHabit(ctx, args[0])
		if err != nil {
			return err
		}

		in := habit.Input{
			Title:       current.Title,
			Description: current.Description,
			ReminderAt:  current.ReminderAt,
		}
		if cmd.Flags().Changed("title") {
			in.Title, _ = cmd.Flags().GetString("title")
		}
		if cmd.Flags().Changed("description") {
			in.Description, _ = cmd.Flags().GetString("description")
		}
		if cmd.Flags().Changed("remind") {
			remindAt, _ := cmd.Flags().GetString("remind")
			if in.ReminderAt, err = parseReminder(remindAt); err != nil {
				return err
			}
		}

		h, err := a.EditHabit(ctx, args[0], in)
		if err != nil {
			return err
		}
		fmt.Printf("Updated %s [%s]\n", h.ID, strings.TrimSpace(syncState(h)))
		return nil
	},
}

var habitRmCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Delete a habit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, "RemoveHabit")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.RemoveHabit(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

var habitLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List habits",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, "ListHabits")
		if err != nil {
			return err
		}
		defer a.Close()

		habits, err := a.ListHabits(ctx)
		if err != nil {
			return err
		}

		if len(habits) == 0 {
			fmt.Println("No habits yet.")
			return nil
		}

		for _, h := range habits {
			reminder := ""
			if h.ReminderAt != nil {
				reminder = "  remind " + h.ReminderAt.Local().Format("2006-01-02 15:04")
				if h.Notified {
					reminder += " (sent)"
				}
			}
			fmt.Printf("%s  %-34s  %s%s\n", syncState(h), h.ID, h.Title, reminder)
		}
		return nil
	},
}

// sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push pending changes to the remote",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, "Sync")
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.Sync(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Pushed %d, remapped %d, failed %d, skipped %d\n",
			report.Pushed, report.Remapped, report.Failed, report.Skipped)
		if report.Failed > 0 {
			return fmt.Errorf("%d record(s) failed to sync; they stay pending", report.Failed)
		}
		return nil
	},
}

// log command
var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Record and view activity",
}

var logAddCmd = &cobra.Command{
	Use:   "add HABIT_ID MINUTES",
	Short: "Record activity for a habit",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var minutes int
		if _, err := fmt.Sscanf(args[1], "%d", &minutes); err != nil {
			return fmt.Errorf("invalid minutes %q: %w", args[1], err)
		}
		notes, _ := cmd.Flags().GetString("notes")

		ctx := cmd.Context()
		a, err := newApp(ctx, "AddLog")
		if err != nil {
			return err
		}
		defer a.Close()

		entry, err := a.AddLog(ctx, args[0], habit.LogInput{DurationMin: minutes, Notes: notes})
		if err != nil {
			return err
		}
		fmt.Printf("Logged %d min at %s\n", entry.DurationMin, entry.LoggedAt.Local().Format("2006-01-02 15:04"))
		return nil
	},
}

var logLsCmd = &cobra.Command{
	Use:   "ls HABIT_ID",
	Short: "View activity for a habit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, "Logs")
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.Logs(ctx, args[0])
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Println("No activity recorded.")
			return nil
		}
		for _, e := range entries {
			fmt.Printf("%s  %4d min  %s\n", e.LoggedAt.Local().Format("2006-01-02 15:04"), e.DurationMin, e.Notes)
		}
		return nil
	},
}

// stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Weekly summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		week, _ := cmd.Flags().GetString("week")

		var weekOf time.Time
		if week != "" {
			var err error
			weekOf, err = time.ParseInLocation(dateLayout, week, time.Local)
			if err != nil {
				return fmt.Errorf("invalid week %q (want YYYY-MM-DD): %w", week, err)
			}
		}

		ctx := cmd.Context()
		a, err := newApp(ctx, "WeeklyStats")
		if err != nil {
			return err
		}
		defer a.Close()

		stats, err := a.WeeklyStats(ctx, weekOf)
		if err != nil {
			return err
		}

		fmt.Printf("Week of %s\n\n", stats.Start.Format(dateLayout))
		fmt.Println("                      M T W T F S S")
		for _, hw := range stats.Habits {
			var days strings.Builder
			for _, done := range hw.Completions {
				if done {
					days.WriteString("x ")
				} else {
					days.WriteString(". ")
				}
			}
			fmt.Printf("%-20.20s  %s  %d day(s), streak %d\n", hw.Title, days.String(), hw.Completed, hw.Streak)
		}

		fmt.Printf("\nCompleted: %d\n", stats.TotalCompleted)
		fmt.Printf("Best streak: %d\n", stats.BestStreak)
		if stats.BestHabit != "" {
			fmt.Printf("Most consistent: %s\n", stats.BestHabit)
		}
		return nil
	},
}

// remind command
var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Deliver due reminders",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, "Remind")
		if err != nil {
			return err
		}
		defer a.Close()

		fired, err := a.Remind(ctx, app.NewWriterNotifier(os.Stdout))
		if err != nil {
			return err
		}
		if fired == 0 {
			fmt.Println("No reminders due.")
		}
		return nil
	},
}

// watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Sync and deliver reminders periodically until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := readConfig()
		if err != nil {
			return err
		}
		interval, err := cfg.Reminders.Every()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("interval") {
			interval, _ = cmd.Flags().GetDuration("interval")
		}

		a, err := app.New(ctx, cfg, "Watch", app.Options{
			Owner:        flagOwner,
			ForceOffline: flagOffline,
			Verbose:      flagVerbose,
			Passphrase:   app.PassphrasePrompt(false),
		})
		if err != nil {
			return fmt.Errorf("initializing app: %w", err)
		}
		defer a.Close()

		fmt.Printf("Watching every %s (Ctrl-C to stop)\n", interval)
		return a.Watch(ctx, interval, app.NewWriterNotifier(os.Stdout))
	},
}

// db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Inspect the local database",
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, "DBStatus")
		if err != nil {
			return err
		}
		defer a.Close()

		st, err := a.DBStatus()
		if err != nil {
			return err
		}
		fmt.Printf("Schema version: %d (latest %d)\n", st.Current, st.Latest)
		if st.Dirty {
			fmt.Println("Schema is dirty.")
		}
		return nil
	},
}

var dbBackupCmd = &cobra.Command{
	Use:   "backup PATH",
	Short: "Snapshot the local database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, "BackupDB")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.BackupDB(args[0]); err != nil {
			return err
		}
		fmt.Printf("Database written to %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagOwner, "owner", "", "Act as this owner instead of the configured one")
	rootCmd.PersistentFlags().BoolVar(&flagOffline, "offline", false, "Do not contact the remote")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Also log to stderr")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// keys subcommands
	keysCmd.AddCommand(keysInitCmd)

	// habit subcommands
	habitCmd.AddCommand(habitAddCmd)
	habitAddCmd.Flags().StringP("description", "d", "", "Longer description")
	habitAddCmd.Flags().StringP("remind", "r", "", "Reminder time, YYYY-MM-DD HH:MM (local)")
	habitCmd.AddCommand(habitEditCmd)
	habitEditCmd.Flags().StringP("title", "t", "", "New title")
	habitEditCmd.Flags().StringP("description", "d", "", "New description")
	habitEditCmd.Flags().StringP("remind", "r", "", "New reminder time, empty to clear")
	habitCmd.AddCommand(habitRmCmd)
	habitCmd.AddCommand(habitLsCmd)

	// log subcommands
	logCmd.AddCommand(logAddCmd)
	logAddCmd.Flags().StringP("notes", "n", "", "Free-form notes")
	logCmd.AddCommand(logLsCmd)

	// db subcommands
	dbCmd.AddCommand(dbStatusCmd)
	dbCmd.AddCommand(dbBackupCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(habitCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().String("week", "", "Any date in the week to summarize, YYYY-MM-DD (default: this week)")
	rootCmd.AddCommand(remindCmd)
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().Duration("interval", config.DefaultReminderInterval, "Time between rounds (default from config)")
	rootCmd.AddCommand(dbCmd)
}
