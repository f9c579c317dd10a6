package internal

import (
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/starford/dainiki/internal/models"
)

var (
	historyHeader = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	historyCell   = lipgloss.NewStyle().Padding(0, 1)
)

// renderHistory lays out build records as a bordered table, newest first.
func renderHistory(builds []models.BuildRecord) string {
	if len(builds) == 0 {
		return "no builds recorded"
	}

	rows := make([][]string, 0, len(builds))
	for _, b := range builds {
		var size int64
		for _, p := range b.Pages {
			size += p.Size
		}
		rows = append(rows, []string{
			b.ID,
			b.StartedAt.Local().Format(time.DateTime),
			b.Duration.Round(time.Millisecond).String(),
			strconv.Itoa(len(b.Pages)),
			strconv.FormatInt(size, 10),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))).
		Headers("ID", "STARTED", "DURATION", "PAGES", "BYTES").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return historyHeader
			}
			return historyCell
		})
	return t.String()
}
