package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kdimtricp/ansimtalk/internal/ai"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Show which vendors and backends are configured",
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	clients := ai.NewClients(cmd.Context(), cfg, logger)
	defer clients.Close()

	fmt.Println(styleTitle.Render("AI services"))
	for _, s := range clients.Status() {
		fmt.Println("  " + statusLine(s.Enabled, s.Name, s.Detail))
	}
	fmt.Println()

	fmt.Println(styleTitle.Render("Backends"))
	fmt.Println("  " + field("Database", cfg.Database.Type))
	fmt.Println("  " + field("Custody ledger", cfg.Custody.Backend))
	fmt.Println("  " + statusLine(cfg.Archive.Bucket != "", "Evidence archive "+cfg.Archive.Bucket, "EVIDENCE_BUCKET"))
	fmt.Println("  " + statusLine(len(cfg.Events.Brokers) > 0, "Kafka events", "KAFKA_BROKERS"))
	fmt.Println("  " + statusLine(cfg.Report.FontPath != "", "Unicode PDF font", "REPORT_FONT_PATH"))

	db, err := openDatabase()
	if err != nil {
		fmt.Println("  " + statusLine(false, "Database connection", err.Error()))
		return nil
	}
	defer db.Close()
	if err := db.Conn().PingContext(cmd.Context()); err != nil {
		fmt.Println("  " + statusLine(false, "Database connection", err.Error()))
		return nil
	}
	fmt.Println("  " + statusLine(true, "Database connection", db.Type()))
	return nil
}
