// Package report renders analysis results as the plain-text report.
package report

import (
	"bufio"
	"io"
	"strings"

	"github.com/miradorstack/mirador-outage/internal/models"
	"github.com/miradorstack/mirador-outage/internal/utils"
)

// Section names, in report order.
const (
	SectionDowntime         = "downtime"
	SectionOverload         = "overload"
	SectionCorrelatedOutage = "correlated_outage"
)

// FormatInterval renders "SUBJECT,START,END".
func FormatInterval(interval models.Interval) string {
	end := utils.UnterminatedMarker
	if !interval.Unterminated {
		end = utils.FormatReportTime(interval.End)
	}
	var b strings.Builder
	b.WriteString(interval.Subject)
	b.WriteByte(',')
	b.WriteString(utils.FormatReportTime(interval.Start))
	b.WriteByte(',')
	b.WriteString(end)
	return b.String()
}

// Lines renders the three sections, each headed by "## name" and closed by a blank line.
func Lines(result models.AnalysisResult) []string {
	sections := []struct {
		name      string
		intervals []models.Interval
	}{
		{SectionDowntime, result.Downtime},
		{SectionOverload, result.Overload},
		{SectionCorrelatedOutage, result.CorrelatedOutage},
	}

	lines := make([]string, 0, len(result.Downtime)+len(result.Overload)+len(result.CorrelatedOutage)+2*len(sections))
	for _, section := range sections {
		lines = append(lines, "## "+section.name)
		for _, interval := range section.intervals {
			lines = append(lines, FormatInterval(interval))
		}
		lines = append(lines, "")
	}
	return lines
}

// Write streams the report to w, one line per entry.
func Write(w io.Writer, result models.AnalysisResult) error {
	bw := bufio.NewWriter(w)
	for _, line := range Lines(result) {
		if _, err := bw.WriteString(line); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}
