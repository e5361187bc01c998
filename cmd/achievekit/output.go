package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"achievekit/engine"
)

type achievementRow struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Unlocked bool     `json:"unlocked"`
	Progress int      `json:"progress,omitempty"`
	Max      int      `json:"max,omitempty"`
	Items    []string `json:"items,omitempty"`
}

func rows(eng *engine.Engine) []achievementRow {
	st := eng.State()
	defs := eng.Catalogue().Definitions()
	out := make([]achievementRow, 0, len(defs))
	for _, d := range defs {
		row := achievementRow{
			ID:       string(d.ID),
			Label:    d.Label,
			Unlocked: eng.IsUnlocked(d.ID),
			Items:    st.Items[d.ID],
		}
		if max, ok := eng.MaxProgress(d.ID); ok {
			row.Progress = st.Progress[d.ID]
			row.Max = max
		}
		out = append(out, row)
	}
	return out
}

func printState(w io.Writer, format string, eng *engine.Engine) error {
	rs := rows(eng)
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rs)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLABEL\tSTATUS\tPROGRESS\tITEMS")
	for _, r := range rs {
		status := "locked"
		if r.Unlocked {
			status = "unlocked"
		}
		progress := "-"
		if r.Max > 0 {
			progress = fmt.Sprintf("%d/%d", r.Progress, r.Max)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Label, status, progress, strings.Join(r.Items, ","))
	}
	fmt.Fprintf(tw, "\n%d/%d unlocked\n", eng.UnlockedCount(), eng.Catalogue().Len())
	return tw.Flush()
}
