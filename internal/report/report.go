// Package report exports the run and wait history to an Excel workbook.
package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/backupqa/qa-agent/internal/models"
	"github.com/backupqa/qa-agent/internal/util"
)

const (
	SummarySheet = "Summary"
	RunsSheet    = "Runs"
	WaitsSheet   = "Waits"
)

var (
	summaryHeader = []any{"Testcase", "Runs", "Passed", "Failed", "Canceled", "Pass rate"}
	runsHeader    = []any{"Run", "Testcase", "Name", "Status", "Created", "Started", "Finished", "Duration (s)", "Result"}
	waitsHeader   = []any{"Wait", "Run", "Job", "Kind", "Outcome", "Final state", "Phase", "Delay reason", "Polls", "Elapsed (s)", "Error", "Created"}
)

// Write renders runs and waits as a workbook with a summary sheet first.
func Write(w io.Writer, runs []models.Run, waits []models.WaitRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	sheets := []struct {
		name   string
		header []any
		rows   [][]any
	}{
		{SummarySheet, summaryHeader, summaryRows(runs)},
		{RunsSheet, runsHeader, runRows(runs)},
		{WaitsSheet, waitsHeader, waitRows(waits)},
	}

	for _, s := range sheets {
		if _, err := f.NewSheet(s.name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", s.name, err)
		}
		if err := writeSheet(f, s.name, s.header, s.rows, header); err != nil {
			return fmt.Errorf("failed to write sheet %s: %w", s.name, err)
		}
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	f.SetActiveSheet(0)

	return f.Write(w)
}

func writeSheet(f *excelize.File, sheet string, header []any, rows [][]any, headerStyle int) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 18); err != nil {
		return err
	}
	return f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func summaryRows(runs []models.Run) [][]any {
	type counts struct{ total, passed, failed, canceled int }
	byTestcase := make(map[string]*counts)
	for _, r := range runs {
		c, ok := byTestcase[r.TestcaseID]
		if !ok {
			c = &counts{}
			byTestcase[r.TestcaseID] = c
		}
		c.total++
		switch r.Status {
		case models.RunStatusPassed:
			c.passed++
		case models.RunStatusFailed:
			c.failed++
		case models.RunStatusCanceled:
			c.canceled++
		}
	}

	ids := make([]string, 0, len(byTestcase))
	for id := range byTestcase {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([][]any, 0, len(ids))
	for _, id := range ids {
		c := byTestcase[id]
		rate := util.Percent(c.passed, c.passed+c.failed)
		rows = append(rows, []any{id, c.total, c.passed, c.failed, c.canceled, fmt.Sprintf("%.0f%%", rate)})
	}
	return rows
}

func runRows(runs []models.Run) [][]any {
	rows := make([][]any, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []any{
			r.ID, r.TestcaseID, r.Name, string(r.Status),
			formatTime(&r.CreatedAt), formatTime(r.StartedAt), formatTime(r.FinishedAt),
			util.Seconds(r.Duration()), r.Result,
		})
	}
	return rows
}

func waitRows(waits []models.WaitRecord) [][]any {
	rows := make([][]any, 0, len(waits))
	for _, w := range waits {
		rows = append(rows, []any{
			w.ID, w.RunID, w.JobID, string(w.Kind), string(w.Outcome), w.FinalState,
			w.Phase, w.DelayReason, w.Polls, util.Seconds(w.Elapsed), w.Error, formatTime(&w.CreatedAt),
		})
	}
	return rows
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
