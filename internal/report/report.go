package report

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"voicescribe-go/internal/logger"
	"voicescribe-go/internal/pipeline"
	"voicescribe-go/internal/types"
)

const (
	statsSheet    = "Statistics"
	outcomesSheet = "Transcriptions"
)

// Write saves the running statistics and the recent outcome history as an
// xlsx workbook at path. Existing files are overwritten.
func Write(path string, snap pipeline.Snapshot, outcomes []*types.TranscriptionOutcome) error {
	log := logger.Component("report").WithField("path", path)
	log.Info("writing transcription report")

	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName(f.GetSheetName(0), statsSheet)
	if err := writeStats(f, snap); err != nil {
		return fmt.Errorf("statistics sheet: %w", err)
	}
	if _, err := f.NewSheet(outcomesSheet); err != nil {
		return fmt.Errorf("new sheet: %w", err)
	}
	if err := writeOutcomes(f, outcomes); err != nil {
		return fmt.Errorf("transcriptions sheet: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		log.WithError(err).Error("save failed")
		return fmt.Errorf("save: %w", err)
	}
	log.WithField("outcomes", len(outcomes)).Info("report written")
	return nil
}

func writeStats(f *excelize.File, snap pipeline.Snapshot) error {
	rows := [][]interface{}{
		{"Metric", "Value"},
		{"Generated At", time.Now().Format(time.RFC3339)},
		{"Messages Processed", snap.MessagesProcessed},
		{"Successful Transcriptions", snap.Successful},
		{"Failed Transcriptions", snap.Failed},
		{"Success Rate", snap.SuccessRate},
		{"Total Audio Duration (s)", snap.TotalAudioSeconds},
		{"Total Processing Time (s)", snap.TotalProcessingSec},
		{"Avg Processing Time (s)", snap.AvgProcessingSec},
		{"Avg Audio Duration (s)", snap.AvgAudioSeconds},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(statsSheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func writeOutcomes(f *excelize.File, outcomes []*types.TranscriptionOutcome) error {
	header := []interface{}{
		"Quality", "Confidence", "Words", "Duration (s)", "Processing (s)",
		"Size (bytes)", "Format", "Language", "Transcript ID", "Error", "Text",
	}
	if err := f.SetSheetRow(outcomesSheet, "A1", &header); err != nil {
		return err
	}
	for i, out := range outcomes {
		errMsg := ""
		if out.Err != nil {
			errMsg = out.Err.Error()
		}
		row := []interface{}{
			string(out.Quality), out.Confidence, out.WordCount,
			out.DurationSeconds, out.ProcessingSeconds, out.FileSizeBytes,
			out.Format, out.Language, out.TranscriptID, errMsg, out.Text,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(outcomesSheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
