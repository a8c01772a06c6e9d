package main

import (
	"fmt"
	"strconv"
	"time"

	"exercise_grid_go/grid"
	"exercise_grid_go/models"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

const maxCellWidth = 24

var (
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	titleStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	dimStyle    = lipgloss.NewStyle().Faint(true).Padding(0, 1)
	activeStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(headers...)
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxCellWidth {
		return s
	}
	return string(r[:maxCellWidth-1]) + "…"
}

// renderGrid рисует видимую часть сетки: номер строки и подписи столбцов.
func renderGrid(tab models.Tab, labels []string, rows [][]string) string {
	headers := append([]string{"#"}, labels...)
	t := newTable(headers...).StyleFunc(func(row, col int) lipgloss.Style {
		switch {
		case row == table.HeaderRow:
			return headerStyle
		case col == 0:
			return dimStyle
		default:
			return cellStyle
		}
	})
	for r, cells := range rows {
		line := make([]string, 0, len(cells)+1)
		line = append(line, strconv.Itoa(r+1))
		for _, c := range cells {
			line = append(line, truncate(c))
		}
		t.Row(line...)
	}
	return lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(tab.Name), t.Render())
}

// renderTabs выводит вкладки, активная выделена.
func renderTabs(tabs []models.Tab, active int64) string {
	t := newTable("ID", "NAME", "KIND").StyleFunc(func(row, _ int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerStyle
		}
		if row >= 0 && row < len(tabs) && tabs[row].ID == active {
			return activeStyle
		}
		return cellStyle
	})
	for _, tab := range tabs {
		kind := "grid"
		if tab.IsImageTab() {
			kind = "images"
		}
		t.Row(strconv.FormatInt(tab.ID, 10), tab.Name, kind)
	}
	return t.Render()
}

func renderImages(images []models.Image) string {
	if len(images) == 0 {
		return dimStyle.Render("Картинок нет")
	}
	t := newTable("ID", "FILE", "CREATED").StyleFunc(func(row, _ int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerStyle
		}
		return cellStyle
	})
	for _, img := range images {
		t.Row(strconv.FormatInt(img.ID, 10), img.FileName, img.CreatedAt.Local().Format(time.DateTime))
	}
	return t.Render()
}

func renderPending(pending []grid.PendingWrite) string {
	if len(pending) == 0 {
		return dimStyle.Render("Очередь пуста")
	}
	t := newTable("CELL", "CONTENT", "ATTEMPTS", "NEXT", "ERROR").StyleFunc(func(row, _ int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerStyle
		}
		return cellStyle
	})
	for _, p := range pending {
		next := "-"
		if !p.NextAttempt.IsZero() {
			next = p.NextAttempt.Local().Format(time.TimeOnly)
		}
		t.Row(p.Cell.Key().String(), truncate(p.Cell.Content), fmt.Sprint(p.Attempts), next, truncate(p.LastError))
	}
	return t.Render()
}
