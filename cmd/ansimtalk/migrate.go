package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kdimtricp/ansimtalk/internal/database"
)

var migrateStatus bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "show migration status only")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	db, err := openDatabase()
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	migrator, err := database.NewMigrator(db, logger)
	if err != nil {
		return err
	}

	if !migrateStatus {
		if err := migrator.Up(cmd.Context()); err != nil {
			return err
		}
		fmt.Println(styleSuccess.Render(iconSuccess + " Migrations completed"))
		return nil
	}

	statuses, err := migrator.Status(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Println(styleTitle.Render("Migration status"))
	for _, s := range statuses {
		state := styleWarning.Render("pending")
		if s.Applied {
			state = styleSuccess.Render("applied")
		}
		fmt.Printf("  %05d  %-32s %s\n", s.Version, s.Name, state)
	}
	return nil
}
