package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/jobsync/internal/model"
	"github.com/amishk599/jobsync/internal/syncer"
)

var (
	historyHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39"))

	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// historyColumns are name/width pairs for the history table.
var historyColumns = []struct {
	name  string
	width int
}{
	{"ID", 6},
	{"PIPELINE", 18},
	{"MODE", 12},
	{"STATUS", 8},
	{"STARTED", 17},
	{"DURATION", 9},
	{"PROC", 6},
	{"INS", 6},
	{"UPD", 6},
	{"FAIL", 6},
	{"PAGES", 6},
}

func statusStyle(s model.RunStatus) lipgloss.Style {
	switch s {
	case model.RunSuccess:
		return successStyle
	case model.RunFailed:
		return failedStyle
	default:
		return runningStyle
	}
}

// RenderHistory formats runs as a table, most recent first as given. A
// failed run gets its error message on an indented line below it.
func RenderHistory(runs []model.SyncRun) string {
	if len(runs) == 0 {
		return mutedStyle.Render("no sync runs recorded") + "\n"
	}

	var b strings.Builder
	var header []string
	for _, c := range historyColumns {
		header = append(header, pad(c.name, c.width))
	}
	b.WriteString(historyHeaderStyle.Render(strings.Join(header, " ")))
	b.WriteByte('\n')

	for _, r := range runs {
		duration := "-"
		if r.EndTime != nil {
			duration = r.Duration().Round(time.Second).String()
		}
		cells := []string{
			fmt.Sprint(r.ID),
			r.PipelineName,
			string(r.Mode),
			string(r.Status),
			fmtTimeIST(&r.StartTime, "2006-01-02 15:04"),
			duration,
			fmt.Sprint(r.JobsProcessed),
			fmt.Sprint(r.JobsInserted),
			fmt.Sprint(r.JobsUpdated),
			fmt.Sprint(r.JobsFailed),
			fmt.Sprint(r.PagesFailed),
		}
		for i, c := range cells {
			cell := pad(c, historyColumns[i].width)
			if i == 3 {
				cell = statusStyle(r.Status).Render(cell)
			}
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(cell)
		}
		b.WriteByte('\n')

		if r.Status == model.RunFailed && r.ErrorMessage != "" {
			b.WriteString(failedStyle.Render("       ↳ " + truncate(r.ErrorMessage, 120)))
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// RenderJobsPlain prints canonical jobs one per line for non-interactive
// output.
func RenderJobsPlain(p syncer.Preview) string {
	var b strings.Builder
	jobs := append([]model.CanonicalJob(nil), p.Jobs...)
	sortJobsByDate(jobs)
	for _, j := range jobs {
		marker := " "
		if p.New[j.IdentityKey] {
			marker = "+"
		}
		posted := "n/a"
		if j.PostedAt != nil {
			posted = j.PostedAt.Format("2006-01-02")
		}
		fmt.Fprintf(&b, "%s %s | %s | %s | %s | %s\n",
			marker, j.IdentityKey, j.Title, j.EmploymentType, posted, strings.Join(j.Skills, ","))
	}
	b.WriteString(previewStats(p))
	b.WriteByte('\n')
	return b.String()
}

func pad(s string, width int) string {
	s = truncate(s, width)
	if n := lipgloss.Width(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}
