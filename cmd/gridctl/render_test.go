package main

import (
	"strings"
	"testing"

	"exercise_grid_go/grid"
	"exercise_grid_go/models"

	"github.com/stretchr/testify/assert"
)

func TestRenderGrid(t *testing.T) {
	out := renderGrid(models.Tab{ID: 1, Name: "EXERCISES"},
		[]string{"Mon", models.DefaultColumnLabel(1)},
		[][]string{{"squats", ""}, {"", strings.Repeat("x", 40)}})

	assert.Contains(t, out, "EXERCISES")
	assert.Contains(t, out, "Mon")
	assert.Contains(t, out, "LESSON 2")
	assert.Contains(t, out, "squats")
	assert.Contains(t, out, strings.Repeat("x", maxCellWidth-1)+"…")
	assert.NotContains(t, out, strings.Repeat("x", maxCellWidth+1))
}

func TestRenderTabs(t *testing.T) {
	out := renderTabs(models.DefaultTabs(), 1)
	assert.Contains(t, out, "EXERCISES")
	assert.Contains(t, out, "images")
}

func TestRenderEmptyLists(t *testing.T) {
	assert.Contains(t, renderImages(nil), "Картинок нет")
	assert.Contains(t, renderPending(nil), "Очередь пуста")

	out := renderPending([]grid.PendingWrite{{Cell: models.Cell{TabID: 1, RowIndex: 2, ColIndex: 3, Content: "a"}, Attempts: 2}})
	assert.Contains(t, out, "1-2-3")
}
