package tui

import (
	"fmt"
	"os/exec"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/jobsync/internal/model"
	"github.com/amishk599/jobsync/internal/syncer"
)

var ist = time.FixedZone("IST", 5*60*60+30*60)

func fmtTimeIST(t *time.Time, layout string) string {
	return t.In(ist).Format(layout)
}

// Lines per job item in the list view (title + subtitle + blank separator).
const jobItemHeight = 3

type viewState int

const (
	viewList viewState = iota
	viewDetail
)

var (
	activeBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("39"))

	inactiveBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	activeHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("39"))

	inactiveHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("240"))

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	jobTitleStyle = lipgloss.NewStyle().
			Bold(true)

	jobSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245"))

	selectedJobTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("24"))

	selectedJobSubtitleStyle = lipgloss.NewStyle().
					Foreground(lipgloss.Color("252")).
					Background(lipgloss.Color("24"))

	detailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Width(16)

	detailValueStyle = lipgloss.NewStyle()

	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				MarginBottom(1)

	skillStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("58")).
			Padding(0, 1)

	descDividerStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240"))

	descHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	descBodyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))
)

type previewModel struct {
	title         string
	allJobs       []model.CanonicalJob
	newJobs       []model.CanonicalJob
	stats         string
	leftViewport  viewport.Model
	rightViewport viewport.Model
	activePane    int // 0=left, 1=right
	leftCursor    int
	rightCursor   int
	width         int
	height        int
	ready         bool

	view            viewState
	detailJob       model.CanonicalJob
	detailViewport  viewport.Model
	showDescription bool
}

func newPreviewModel(title string, p syncer.Preview) previewModel {
	all := append([]model.CanonicalJob(nil), p.Jobs...)
	sortJobsByDate(all)

	var fresh []model.CanonicalJob
	for _, j := range all {
		if p.New[j.IdentityKey] {
			fresh = append(fresh, j)
		}
	}

	return previewModel{
		title:   title,
		allJobs: all,
		newJobs: fresh,
		stats:   previewStats(p),
	}
}

func (m previewModel) Init() tea.Cmd {
	return nil
}

func (m previewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		if m.view == viewDetail {
			m.detailViewport.Width = m.width - 4
			m.detailViewport.Height = m.height - 4
			m.detailViewport.SetContent(m.renderDetail())
		}
		return m, nil

	case tea.KeyMsg:
		if m.view == viewDetail {
			return m.updateDetailView(msg)
		}
		return m.updateListView(msg)
	}

	return m, nil
}

func (m previewModel) updateListView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "tab", "left", "right":
		m.activePane = 1 - m.activePane
		m.recalcContent()
		return m, nil
	case "up", "k":
		m.moveCursor(-1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "down", "j":
		m.moveCursor(1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "enter":
		return m.openDetailView(), nil
	}

	var cmd tea.Cmd
	if m.activePane == 0 {
		m.leftViewport, cmd = m.leftViewport.Update(msg)
	} else {
		m.rightViewport, cmd = m.rightViewport.Update(msg)
	}
	return m, cmd
}

func (m previewModel) updateDetailView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc", "backspace":
		m.view = viewList
		return m, nil
	case "o":
		if m.detailJob.ApplyURL != "" {
			openURL(m.detailJob.ApplyURL)
		}
		return m, nil
	case "r":
		if m.detailJob.Description != nil {
			m.showDescription = !m.showDescription
			m.detailViewport.SetContent(m.renderDetail())
			m.detailViewport.SetYOffset(0)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.detailViewport, cmd = m.detailViewport.Update(msg)
	return m, cmd
}

func (m *previewModel) moveCursor(delta int) {
	if m.activePane == 0 {
		m.leftCursor = clamp(m.leftCursor+delta, 0, max(len(m.allJobs)-1, 0))
	} else {
		m.rightCursor = clamp(m.rightCursor+delta, 0, max(len(m.newJobs)-1, 0))
	}
}

func (m *previewModel) ensureCursorVisible() {
	vp, cursor := &m.leftViewport, m.leftCursor
	if m.activePane == 1 {
		vp, cursor = &m.rightViewport, m.rightCursor
	}

	cursorTop := cursor * jobItemHeight
	cursorBottom := cursorTop + jobItemHeight - 1

	if cursorTop < vp.YOffset {
		vp.SetYOffset(cursorTop)
	} else if cursorBottom >= vp.YOffset+vp.Height {
		vp.SetYOffset(cursorBottom - vp.Height + 1)
	}
}

func (m previewModel) openDetailView() previewModel {
	jobs, cursor := m.allJobs, m.leftCursor
	if m.activePane == 1 {
		jobs, cursor = m.newJobs, m.rightCursor
	}
	if len(jobs) == 0 {
		return m
	}

	m.view = viewDetail
	m.detailJob = jobs[cursor]
	m.showDescription = false
	m.detailViewport = viewport.New(m.width-4, m.height-4)
	m.detailViewport.SetContent(m.renderDetail())
	return m
}

func (m *previewModel) recalcLayout() {
	// 2 border chars per pane + 1 gap between panes.
	paneWidth := max((m.width-5)/2, 20)

	// Header (1 line) + border top/bottom (2) + status bar (1) = 4 lines overhead.
	paneHeight := max(m.height-4, 5)

	if !m.ready {
		m.leftViewport = viewport.New(paneWidth, paneHeight)
		m.rightViewport = viewport.New(paneWidth, paneHeight)
		m.ready = true
	} else {
		m.leftViewport.Width = paneWidth
		m.leftViewport.Height = paneHeight
		m.rightViewport.Width = paneWidth
		m.rightViewport.Height = paneHeight
	}

	m.recalcContent()
}

func (m *previewModel) recalcContent() {
	m.leftViewport.SetContent(renderJobs(m.allJobs, m.leftCursor, m.activePane == 0))
	m.rightViewport.SetContent(renderJobs(m.newJobs, m.rightCursor, m.activePane == 1))
}

func (m previewModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.view == viewDetail {
		return m.viewDetail()
	}
	return m.viewList()
}

func (m previewModel) viewList() string {
	paneWidth := m.leftViewport.Width

	leftHeader := fmt.Sprintf(" %s: canonical (%d)", m.title, len(m.allJobs))
	rightHeader := fmt.Sprintf(" Not yet stored (%d)", len(m.newJobs))

	leftHeaderSt, rightHeaderSt := activeHeaderStyle, inactiveHeaderStyle
	leftBorder, rightBorder := activeBorderStyle, inactiveBorderStyle
	if m.activePane == 1 {
		leftHeaderSt, rightHeaderSt = inactiveHeaderStyle, activeHeaderStyle
		leftBorder, rightBorder = inactiveBorderStyle, activeBorderStyle
	}

	leftPane := leftBorder.Width(paneWidth).Render(m.leftViewport.View())
	rightPane := rightBorder.Width(paneWidth).Render(m.rightViewport.View())

	headerRow := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(paneWidth+2).Render(leftHeaderSt.Render(leftHeader)),
		" ",
		lipgloss.NewStyle().Width(paneWidth+2).Render(rightHeaderSt.Render(rightHeader)),
	)
	panes := lipgloss.JoinHorizontal(lipgloss.Top, leftPane, " ", rightPane)

	statusText := " " + m.stats + "    ←/→/Tab switch  ↑/↓ cursor  Enter detail  q quit"
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return headerRow + "\n" + panes + "\n" + statusBar
}

func (m previewModel) viewDetail() string {
	title := detailTitleStyle.Render("Canonical Job")

	border := activeBorderStyle.Width(m.width - 2)
	content := border.Render(m.detailViewport.View())

	statusText := " o open apply URL  esc/backspace back  ↑/↓ scroll  q quit"
	if m.detailJob.Description != nil {
		statusText = " o open apply URL  r desc  esc/backspace back  ↑/↓ scroll  q quit"
	}
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return title + "\n" + content + "\n" + statusBar
}

func (m previewModel) renderDetail() string {
	wrapWidth := max(m.width-8, 20)
	return renderJobDetail(m.detailJob, m.showDescription, wrapWidth)
}

func renderJobDetail(j model.CanonicalJob, showDescription bool, wrapWidth int) string {
	var b strings.Builder

	addField := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(detailLabelStyle.Render(label))
		b.WriteString(detailValueStyle.Render(value))
		b.WriteByte('\n')
	}
	deref := func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	}

	addField("Title", j.Title)
	addField("Company", j.Company)
	addField("Location", deref(j.Location))
	addField("Department", deref(j.Department))
	addField("Identity", j.IdentityKey)

	b.WriteByte('\n')
	addField("Employment", string(j.EmploymentType))
	addField("Source", string(j.Source))
	remote := "no"
	if j.IsRemote {
		remote = "yes"
	}
	addField("Remote", remote)
	if j.PostedAt != nil {
		addField("Posted At", fmtTimeIST(j.PostedAt, "2006-01-02 15:04 MST"))
	}
	addField("Salary", formatSalary(j.SalaryMin, j.SalaryMax))

	if len(j.Skills) > 0 {
		b.WriteByte('\n')
		tags := make([]string, len(j.Skills))
		for i, s := range j.Skills {
			tags[i] = skillStyle.Render(s)
		}
		b.WriteString(detailLabelStyle.Render("Skills"))
		b.WriteString(wordWrap(strings.Join(tags, " "), max(wrapWidth-16, 20)))
		b.WriteByte('\n')
	}

	b.WriteByte('\n')
	addField("Apply URL", j.ApplyURL)

	if j.Description != nil {
		b.WriteByte('\n')
		if showDescription {
			label := "── Description "
			fill := strings.Repeat("─", max(wrapWidth-len(label), 3))
			b.WriteString(descDividerStyle.Render(label+fill) + "\n\n")
			b.WriteString(descBodyStyle.Render(wordWrap(*j.Description, wrapWidth)) + "\n")
		} else {
			b.WriteString(descHintStyle.Render("  press r to read description") + "\n")
		}
	}

	return b.String()
}

// formatSalary renders a salary band. Zero bounds mean unknown.
func formatSalary(lo, hi float64) string {
	switch {
	case lo == 0 && hi == 0:
		return ""
	case hi == 0 || lo == hi:
		return fmt.Sprintf("%.0f", max(lo, hi))
	case lo == 0:
		return fmt.Sprintf("up to %.0f", hi)
	}
	return fmt.Sprintf("%.0f - %.0f", lo, hi)
}

func previewStats(p syncer.Preview) string {
	return fmt.Sprintf("%d raw | %d canonical | %d rejected | %d duplicates | %d pages failed",
		p.Raw, len(p.Jobs), p.Rejected, p.Duplicates, p.PagesFailed)
}

func renderJobs(jobs []model.CanonicalJob, cursor int, isActive bool) string {
	if len(jobs) == 0 {
		return "  (no jobs)"
	}

	var b strings.Builder
	for i, j := range jobs {
		isSelected := isActive && i == cursor

		titleSt := jobTitleStyle
		subtitleSt := jobSubtitleStyle
		prefix := "  "
		if isSelected {
			titleSt = selectedJobTitleStyle
			subtitleSt = selectedJobSubtitleStyle
			prefix = "> "
		}

		b.WriteString(prefix)
		b.WriteString(titleSt.Render(j.Title + " · " + j.Company))
		b.WriteByte('\n')

		posted := "n/a"
		if j.PostedAt != nil {
			posted = j.PostedAt.Format("2006-01-02")
		}
		location := "n/a"
		if j.Location != nil {
			location = *j.Location
		}
		b.WriteString(prefix)
		b.WriteString(subtitleSt.Render(fmt.Sprintf("%s · %s · %s", location, j.EmploymentType, posted)))
		b.WriteByte('\n')

		if i < len(jobs)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// sortJobsByDate orders newest first; undated jobs go last.
func sortJobsByDate(jobs []model.CanonicalJob) {
	sort.SliceStable(jobs, func(i, j int) bool {
		if jobs[i].PostedAt == nil {
			return false
		}
		if jobs[j].PostedAt == nil {
			return true
		}
		return jobs[i].PostedAt.After(*jobs[j].PostedAt)
	})
}

func wordWrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if lipgloss.Width(line)+1+lipgloss.Width(w) <= width {
			line += " " + w
		} else {
			lines = append(lines, line)
			line = w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// openURL opens url in the default system browser, fire-and-forget.
func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	_ = cmd.Start()
}

// RunPreview launches the split-pane preview of canonical jobs. The right
// pane lists the jobs whose identity key the store does not hold yet.
func RunPreview(title string, p syncer.Preview) error {
	m := newPreviewModel(title, p)
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
