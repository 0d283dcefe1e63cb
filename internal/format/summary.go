package format

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"rppreproc/internal/preproc"
)

// detailWidth wraps the Detail column.
const detailWidth = 80

// serviceReply is a Result as returned by the service, or its error body.
type serviceReply struct {
	preproc.Result
	Message string `json:"message"`
	Error   string `json:"error"`
}

// SummaryTable renders one row per launch, merged launch, dashboard and
// skipped file, with the elapsed time as footer. ReportPortal may hold a
// *preproc.Result or the raw JSON reply of an rp-preproc service.
func SummaryTable(m Mode, s preproc.Summary) (string, error) {
	var reply serviceReply
	switch r := s.ReportPortal.(type) {
	case *preproc.Result:
		if r != nil {
			reply.Result = *r
		}
	case json.RawMessage:
		if err := json.Unmarshal(r, &reply); err != nil {
			return "", fmt.Errorf("decode service reply: %w", err)
		}
	default:
		return "", fmt.Errorf("unsupported summary payload %T", s.ReportPortal)
	}

	w := newWriter(m)
	w.AppendHeader(table.Row{"Kind", "ID", "Detail"})
	for _, id := range reply.Launches {
		w.AppendRow(table.Row{"launch", id, ""})
	}
	if reply.MergedLaunch != "" {
		w.AppendRow(table.Row{"merged launch", reply.MergedLaunch, ""})
	}
	if d := reply.AutoDashboard; d != nil {
		w.AppendRow(table.Row{"dashboard", d.ID.String(), d.URL})
	}
	for _, f := range reply.FailedFiles {
		w.AppendRow(table.Row{"failed file", f.File, Truncate(f.Error, 120)})
	}
	if reply.Message != "" {
		detail := reply.Message
		if reply.Error != "" {
			detail += ": " + reply.Error
		}
		w.AppendRow(table.Row{"error", "", Truncate(detail, 120)})
	}
	w.AppendFooter(table.Row{"elapsed", "", FmtDuration(time.Duration(s.RPPreproc.ElapsedTime) * time.Second)})
	w.SetColumnConfigs([]table.ColumnConfig{{Number: 3, WidthMax: detailWidth}})
	return render(w, m), nil
}

// FmtDuration formats a duration as "Xm Ys" or "Ys".
func FmtDuration(d time.Duration) string {
	s := int(d.Seconds())
	if s >= 60 {
		return fmt.Sprintf("%dm %ds", s/60, s%60)
	}
	return fmt.Sprintf("%ds", s)
}

// Truncate shortens s to maxLen runes, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
