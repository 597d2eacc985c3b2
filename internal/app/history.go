package app

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/vk/qr3d/internal/history"
)

// printHistory writes the most recent runs as a table.
func (a *App) printHistory(ctx context.Context) error {
	store, err := history.Open(ctx, a.config.HistoryPath)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer store.Close()

	entries, err := store.List(ctx, a.config.HistoryList)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.outW, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CREATED\tNAME\tMODE\tSTATUS\tDURATION\tOUTPUT")
	for _, e := range entries {
		state, output := "ok", e.MeshPath
		if !e.OK {
			state, output = "failed@"+string(e.Stage), e.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.CreatedAt.Local().Format(time.DateTime), e.Name, e.Mode, state, e.Duration.Round(time.Millisecond), output)
	}
	return w.Flush()
}
