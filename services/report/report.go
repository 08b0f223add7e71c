// Package report builds the spreadsheets downloaded from the admin area.
package report

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/edukanda/edukanda/core/ranking"
)

const (
	RankingSheet = "Ranking"
	ContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var rankingHeader = []interface{}{"Rank", "ID", "Name", "Points"}

// Leaderboard provides the ranked entries. ranking.Service is one.
type Leaderboard interface {
	Leaderboard(ctx context.Context) ([]ranking.Entry, error)
}

// RankingFilename is the download name of the ranking report generated at t.
func RankingFilename(t time.Time) string {
	return "ranking-" + t.UTC().Format("2006-01-02") + ".xlsx"
}

// WriteRanking writes the current leaderboard to w as an xlsx workbook.
func WriteRanking(ctx context.Context, w io.Writer, lb Leaderboard) error {
	entries, err := lb.Leaderboard(ctx)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()
	f.SetSheetName(f.GetSheetName(0), RankingSheet)

	if err := f.SetSheetRow(RankingSheet, "A1", &rankingHeader); err != nil {
		return errors.Wrap(err, "writing header")
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "creating header style")
	}
	if err := f.SetCellStyle(RankingSheet, "A1", "D1", bold); err != nil {
		return errors.Wrap(err, "styling header")
	}
	if err := f.SetColWidth(RankingSheet, "C", "C", 32); err != nil {
		return errors.Wrap(err, "sizing columns")
	}

	for i, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{e.Rank, e.ID, e.Name, e.Points}
		if err := f.SetSheetRow(RankingSheet, cell, &row); err != nil {
			return errors.Wrapf(err, "writing entry %d", e.ID)
		}
	}
	return errors.Wrap(f.Write(w), "writing workbook")
}
