package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gorm.io/gorm/logger"

	"planforge/internal/database"
	"planforge/internal/events"
	"planforge/internal/services"
	"planforge/internal/utils"
)

// planforge-cli drives sessions and document generation without the
// desktop shell, against the same database.
func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dbPath string

	root := &cobra.Command{
		Use:           "planforge-cli",
		Short:         "Headless access to planforge sessions and document generation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dbPath, "db", "", "path to the planforge database (defaults to the app's database)")

	root.AddCommand(
		newSessionsCmd(&dbPath),
		newForgeCmd(&dbPath),
		newExportCmd(&dbPath),
		newStaleCmd(&dbPath),
	)
	return root
}

// openServices wires the full service container the same way the desktop
// app does, with events printed to stderr instead of a webview.
func openServices(dbPath string) (*services.DbServices, error) {
	// Provider API keys may come from a .env file when no keychain exists.
	_ = utils.LoadEnv()

	db, err := database.Init(database.Config{
		Path:     dbPath,
		LogLevel: logger.Silent,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	events.SetCustomEmitter(func(ctx context.Context, name string, evt events.ToolEvent) {
		fmt.Fprintf(os.Stderr, "[%s] %s %s\n", evt.Type, name, evt.Message)
	})

	svc := services.NewDbServices(db)
	if err := svc.StartDbServices(context.Background()); err != nil {
		return nil, err
	}
	return svc, nil
}

func newSessionsCmd(dbPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openServices(*dbPath)
			if err != nil {
				return err
			}
			sessions, err := svc.Sessions.ListSessions()
			if err != nil {
				return err
			}
			for _, s := range sessions {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\t%s\n", s.ID, s.Status, s.UpdatedAt.Format("2006-01-02 15:04"), s.Name)
			}
			return nil
		},
	}
	return cmd
}

func newForgeCmd(dbPath *string) *cobra.Command {
	var target string
	var force bool

	cmd := &cobra.Command{
		Use:   "forge <session-id>",
		Short: "Generate the document set for a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, err := parseSessionID(args[0])
			if err != nil {
				return err
			}
			svc, err := openServices(*dbPath)
			if err != nil {
				return err
			}
			result, err := svc.Forge.Forge(sessionID, target, force)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run %s (%s)\n", result.RunID, result.Target)
			for _, doc := range result.Documents {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s v%d\n", doc.Filename, doc.Version)
			}
			if result.Confidence != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "confidence: %d\n", result.Confidence.Score)
			}
			if result.Readiness != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "readiness: %d\n", result.Readiness.Score)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&target, "target", "", "target profile (claude-code, cursor, generic)")
	cmd.Flags().BoolVar(&force, "force", false, "regenerate even when the conversation has not changed")
	return cmd
}

func newExportCmd(dbPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <session-id> <folder>",
		Short: "Export the current document set to a folder",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, err := parseSessionID(args[0])
			if err != nil {
				return err
			}
			svc, err := openServices(*dbPath)
			if err != nil {
				return err
			}
			manifest, err := svc.Exports.SaveToFolder(sessionID, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d files from run %s\n", len(manifest.Files), manifest.RunID)
			return nil
		},
	}
	return cmd
}

func newStaleCmd(dbPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stale <session-id>",
		Short: "Report whether the generated documents lag the conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, err := parseSessionID(args[0])
			if err != nil {
				return err
			}
			svc, err := openServices(*dbPath)
			if err != nil {
				return err
			}
			info, err := svc.Exports.CheckStale(sessionID)
			if err != nil {
				return err
			}
			if info.Stale {
				fmt.Fprintf(cmd.OutOrStdout(), "stale: %s\n", info.Reason)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "up to date")
			}
			return nil
		},
	}
	return cmd
}

func parseSessionID(arg string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid session id: %s", arg)
	}
	return uint(id), nil
}
