package viz

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pmctools/cyclotrack/internal/track"
	"github.com/pmctools/cyclotrack/internal/trackrun"
)

const browserPageSize = 18

// Browser is an interactive terminal viewer over a run's tracks.
type Browser struct {
	run      *trackrun.Run
	tracks   []*track.Track
	selected int
	offset   int
}

// NewBrowser builds a browser over the run's tracks in id order.
func NewBrowser(run *trackrun.Run) Browser {
	var tracks []*track.Track
	for _, tr := range run.Tracks() {
		tracks = append(tracks, tr)
	}
	return Browser{run: run, tracks: tracks}
}

func (b Browser) Init() tea.Cmd { return nil }

func (b Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return b, tea.Quit
		case "up", "k":
			b.move(-1)
		case "down", "j":
			b.move(1)
		case "pgup":
			b.move(-browserPageSize)
		case "pgdown":
			b.move(browserPageSize)
		case "home", "g":
			b.selected = 0
			b.offset = 0
		case "end", "G":
			b.move(len(b.tracks))
		}
	}
	return b, nil
}

func (b *Browser) move(delta int) {
	if len(b.tracks) == 0 {
		return
	}
	b.selected += delta
	if b.selected < 0 {
		b.selected = 0
	}
	if b.selected >= len(b.tracks) {
		b.selected = len(b.tracks) - 1
	}
	if b.selected < b.offset {
		b.offset = b.selected
	}
	if b.selected >= b.offset+browserPageSize {
		b.offset = b.selected - browserPageSize + 1
	}
}

func (b Browser) View() string {
	if len(b.tracks) == 0 {
		return headerStyle.Render("TRACK BROWSER") + "\n" +
			subtleStyle.Render("run has no tracks") + "\n\n" +
			subtleStyle.Render("Q:Quit")
	}

	var list strings.Builder
	list.WriteString(subtleStyle.Render(fmt.Sprintf("%5s %5s %9s %9s %9s", "ID", "OBS", "LIFE(h)", "DIST(km)", "MAXVORT")) + "\n")
	end := b.offset + browserPageSize
	if end > len(b.tracks) {
		end = len(b.tracks)
	}
	for i := b.offset; i < end; i++ {
		tr := b.tracks[i]
		line := fmt.Sprintf("%5d %5d %9.1f %9.0f %9.2e",
			tr.ID(), tr.Len(), tr.LifetimeH(), tr.TotalDistKM(), tr.MaxVort())
		if i == b.selected {
			list.WriteString(selectedStyle.Render("> "+line) + "\n")
		} else {
			list.WriteString("  " + valueStyle.Render(line) + "\n")
		}
	}
	listView := panelStyle.Render(list.String())

	detailView := panelStyle.Render(b.detail())

	help := subtleStyle.Render("↑↓/JK:Move  PgUp/PgDn:Page  G:End  Q:Quit")
	pos := subtleStyle.Render(fmt.Sprintf("track %d of %d", b.selected+1, len(b.tracks)))

	header := headerStyle.Render("TRACK BROWSER")
	body := lipgloss.JoinHorizontal(lipgloss.Top, listView, " ", detailView)
	return header + "\n" + body + "\n" + pos + "  " + help
}

func (b Browser) detail() string {
	tr := b.tracks[b.selected]
	gen, lys := tr.Genesis(), tr.Lysis()

	var d strings.Builder
	d.WriteString(KVLine("Track", fmt.Sprintf("%d", tr.ID())) + "\n")
	d.WriteString(KVLine("Genesis", fmt.Sprintf("%s  (%.1f, %.1f)",
		gen.Time.Format("2006-01-02 15:04"), gen.Lon, gen.Lat)) + "\n")
	d.WriteString(KVLine("Lysis", fmt.Sprintf("%s  (%.1f, %.1f)",
		lys.Time.Format("2006-01-02 15:04"), lys.Lon, lys.Lat)) + "\n")
	d.WriteString(KVLine("Lifetime", fmt.Sprintf("%.1f h", tr.LifetimeH())) + "\n")
	d.WriteString(KVLine("Distance", fmt.Sprintf("%.0f km", tr.TotalDistKM())) + "\n")
	d.WriteString(KVLine("Gen-lys dist", fmt.Sprintf("%.0f km", tr.GenLysDistKM())) + "\n")
	if speed := tr.AverageSpeed(); !math.IsNaN(speed) {
		d.WriteString(KVLine("Avg speed", fmt.Sprintf("%.1f km/h", speed)) + "\n")
	} else {
		d.WriteString(KVLine("Avg speed", "n/a") + "\n")
	}
	d.WriteString(KVLine("Max vorticity", fmt.Sprintf("%.2e 1/s", tr.MaxVort())) + "\n\n")

	d.WriteString(subtleStyle.Render("vorticity") + "\n")
	d.WriteString(Sparkline(tr.Vorts(), 36) + "\n")

	for _, label := range b.run.CatLabels() {
		flags, err := b.run.Category(label)
		if err != nil || b.selected >= len(flags) {
			continue
		}
		mark := subtleStyle.Render("·")
		if flags[b.selected] {
			mark = selectedStyle.Render("✓")
		}
		d.WriteString(fmt.Sprintf("%s %s\n", mark, valueStyle.Render(label)))
	}

	return d.String()
}

// RunBrowser starts the interactive browser and blocks until it exits.
func RunBrowser(run *trackrun.Run) error {
	p := tea.NewProgram(NewBrowser(run))
	_, err := p.Run()
	return err
}
