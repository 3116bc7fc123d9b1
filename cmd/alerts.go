package cmd

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"vigil/config"
	"vigil/core"
	"vigil/storage"
)

var severityColors = map[core.Severity]*color.Color{
	core.SeverityLow:      color.New(color.FgWhite),
	core.SeverityMedium:   color.New(color.FgYellow),
	core.SeverityHigh:     color.New(color.FgRed),
	core.SeverityCritical: color.New(color.FgRed, color.Bold),
}

func newAlertsCmd() *cobra.Command {
	var (
		limit     int
		unackOnly bool
		sevFilter string
	)
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Print alerts from the persisted state snapshot",
		Long:  "Reads the state snapshot file and prints stored alerts newest first. Works offline against the last saved state; it does not query a running engine.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAlerts(limit, unackOnly, sevFilter)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum alerts to print")
	cmd.Flags().BoolVar(&unackOnly, "unacknowledged", false, "only show unacknowledged alerts")
	cmd.Flags().StringVar(&sevFilter, "severity", "", "filter by severity (low, medium, high, critical)")
	return cmd
}

func runAlerts(limit int, unackOnly bool, sevFilter string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	var severity core.Severity
	if sevFilter != "" {
		severity, err = core.ParseSeverity(sevFilter)
		if err != nil {
			return err
		}
	}

	gateway := storage.NewSnapshotGateway(cfg.StatePath, logger)
	doc, err := gateway.Load()
	if err != nil {
		return err
	}
	if doc == nil {
		fmt.Printf("no state snapshot at %s\n", cfg.StatePath)
		return nil
	}

	store := storage.NewAlertStore()
	store.Import(doc.Alerts)
	filter := core.AlertFilter{Limit: limit, Severity: severity}
	if unackOnly {
		f := false
		filter.Acknowledged = &f
	}
	alerts := store.List(filter)
	if len(alerts) == 0 {
		fmt.Println("no matching alerts")
		return nil
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Timestamp.After(alerts[j].Timestamp)
	})
	for _, a := range alerts {
		c, ok := severityColors[a.Severity]
		if !ok {
			c = color.New(color.FgWhite)
		}
		ack := " "
		if a.Acknowledged {
			ack = "✓"
		}
		c.Printf("[%-8s]", a.Severity)
		fmt.Printf(" %s %s  %s (%s/%s) x%d [%s]\n",
			ack,
			a.Timestamp.Format("2006-01-02 15:04:05"),
			a.RuleName, a.Tactic, a.Technique, a.EventCount, shortID(a.ID))
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
