package report_test

import (
	"bytes"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/xuri/excelize/v2"

	"github.com/backupqa/qa-agent/internal/models"
	"github.com/backupqa/qa-agent/internal/report"
)

var _ = Describe("Write", func() {
	// Given runs of two testcases and one recorded wait
	// When the report is written
	// Then every sheet should hold a header and one row per record
	It("should export summary, runs and waits", func() {
		// Arrange
		started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		finished := started.Add(90 * time.Second)
		runs := []models.Run{
			{ID: "r1", TestcaseID: "backup", Name: "Backup job completes", Status: models.RunStatusPassed, CreatedAt: started, StartedAt: &started, FinishedAt: &finished},
			{ID: "r2", TestcaseID: "backup", Name: "Backup job completes", Status: models.RunStatusFailed, Result: "job 12 failed", CreatedAt: started},
			{ID: "r3", TestcaseID: "restore", Name: "Restore job completes", Status: models.RunStatusCanceled, CreatedAt: started},
		}
		waits := []models.WaitRecord{
			{ID: "w1", RunID: "r1", JobID: "1001", Kind: models.WaitKindJob, Outcome: models.WaitOutcomeSucceeded, FinalState: "completed", Polls: 4, Elapsed: 30 * time.Second, CreatedAt: finished},
		}
		var buf bytes.Buffer

		// Act
		err := report.Write(&buf, runs, waits)

		// Assert
		Expect(err).NotTo(HaveOccurred())

		f, err := excelize.OpenReader(&buf)
		Expect(err).NotTo(HaveOccurred())
		defer f.Close()
		Expect(f.GetSheetList()).To(Equal([]string{report.SummarySheet, report.RunsSheet, report.WaitsSheet}))

		summary, err := f.GetRows(report.SummarySheet)
		Expect(err).NotTo(HaveOccurred())
		Expect(summary).To(HaveLen(3))
		Expect(summary[1]).To(Equal([]string{"backup", "2", "1", "1", "0", "50%"}))
		Expect(summary[2][0]).To(Equal("restore"))

		runRows, err := f.GetRows(report.RunsSheet)
		Expect(err).NotTo(HaveOccurred())
		Expect(runRows).To(HaveLen(4))
		Expect(runRows[1][3]).To(Equal("passed"))
		Expect(runRows[1][7]).To(Equal("90"))
		Expect(runRows[2][8]).To(Equal("job 12 failed"))

		waitRows, err := f.GetRows(report.WaitsSheet)
		Expect(err).NotTo(HaveOccurred())
		Expect(waitRows).To(HaveLen(2))
		Expect(waitRows[1][2]).To(Equal("1001"))
		Expect(waitRows[1][4]).To(Equal("succeeded"))
	})

	It("should write headers for an empty history", func() {
		var buf bytes.Buffer
		Expect(report.Write(&buf, nil, nil)).To(Succeed())

		f, err := excelize.OpenReader(&buf)
		Expect(err).NotTo(HaveOccurred())
		defer f.Close()
		rows, err := f.GetRows(report.RunsSheet)
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(HaveLen(1))
	})
})
