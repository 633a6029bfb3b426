package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/aki/mcprelay/internal/status"
)

// PrintStatus renders a relay status file as a two-column table.
func PrintStatus(st *status.Status) {
	PrintSectionHeader(RelayIcon, "Relay "+st.RunID)

	tbl := NewTable("FIELD", "VALUE")
	tbl.AddRow("state", StateStyle(st.State).Render(st.State))
	tbl.AddRow("pid", st.PID)
	tbl.AddRow("command", strings.Join(st.Command, " "))
	tbl.AddRow("pending", st.Pending)
	tbl.AddRow("input", fmt.Sprintf("%d read, %d queued, %d written, %d dropped", st.LinesIn, st.InputQueued, st.InputWritten, st.InputDropped))
	tbl.AddRow("output", fmt.Sprintf("%d stdout, %d stderr", st.LinesOut, st.LinesErr))
	tbl.AddRow("forwarded", fmt.Sprintf("%d forwarded, %d filtered", st.Forwarded, st.Filtered))
	tbl.AddRow("started", FormatTime(st.StartedAt))
	tbl.AddRow("ready", FormatTime(st.ReadyAt))
	tbl.AddRow("last activity", FormatTime(st.LastActivityAt))
	if !st.EndedAt.IsZero() {
		tbl.AddRow("ended", FormatTime(st.EndedAt))
		tbl.AddRow("duration", FormatDuration(st.EndedAt.Sub(st.StartedAt)))
		tbl.AddRow("exit code", st.ExitCode)
	} else if !st.StartedAt.IsZero() {
		tbl.AddRow("uptime", FormatDuration(time.Since(st.StartedAt)))
	}
	tbl.Print()
}
