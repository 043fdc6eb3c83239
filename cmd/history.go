package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"adsbridge/pkg/bus"
	"adsbridge/pkg/config"
	"adsbridge/pkg/journal"
	"adsbridge/pkg/logger"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var (
	historyStatus  string
	historyType    string
	historySession string
	historyLimit   int
	historyJSON    bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show journaled deliveries",
	Long:  "Reads the delivery journal written by run --journal and prints the newest entries first.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}

		filter, err := historyFilter()
		if err != nil {
			fmt.Printf("invalid filter: %v\n", err)
			return
		}

		j, err := journal.Open(cfg.Journal.Path, logger.Discard())
		if err != nil {
			fmt.Printf("failed to open journal: %v\n", err)
			return
		}
		defer j.Close()

		entries, err := j.Recent(context.Background(), filter)
		if err != nil {
			fmt.Printf("failed to read journal: %v\n", err)
			return
		}

		if historyJSON {
			if err := writeHistoryJSON(os.Stdout, entries); err != nil {
				fmt.Printf("failed to encode history: %v\n", err)
			}
			return
		}
		fmt.Println(renderHistory(entries))
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringVar(&historyStatus, "status", "", "only show deliveries with this status (delivered, dropped, failed)")
	historyCmd.Flags().StringVar(&historyType, "type", "", "only show this adUnitType")
	historyCmd.Flags().StringVar(&historySession, "session", "", "only show this runtime session")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 50, "maximum number of entries")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "print entries as JSON lines")
}

func historyFilter() (journal.Filter, error) {
	filter := journal.Filter{
		Type:      strings.TrimSpace(historyType),
		SessionID: strings.TrimSpace(historySession),
		Limit:     historyLimit,
	}

	switch status := bus.Status(strings.ToLower(strings.TrimSpace(historyStatus))); status {
	case "":
	case bus.StatusDelivered, bus.StatusDropped, bus.StatusFailed:
		filter.Status = status
	default:
		return journal.Filter{}, fmt.Errorf("unknown status %q", historyStatus)
	}

	return filter, nil
}

func writeHistoryJSON(w io.Writer, entries []journal.Entry) error {
	encoder := json.NewEncoder(w)
	for _, entry := range entries {
		if err := encoder.Encode(entry); err != nil {
			return err
		}
	}
	return nil
}

func renderHistory(entries []journal.Entry) string {
	if len(entries) == 0 {
		return "no deliveries journaled"
	}

	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []string{
			entry.At.Local().Format("2006-01-02 15:04:05.000"),
			string(entry.Status),
			entry.Phase,
			displayOrDash(entry.Type),
			strconv.FormatBool(entry.IsError),
			displayOrDash(shortID(entry.SessionID)),
			displayOrDash(entry.Error),
		})
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("AT", "STATUS", "PHASE", "TYPE", "ERROR?", "SESSION", "DETAIL").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	return t.Render()
}

func displayOrDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
