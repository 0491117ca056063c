package digest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"html"
	"strconv"

	"github.com/nadmax/modreport/internal/outcome"
	"github.com/olekukonko/tablewriter"
)

type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

type Message struct {
	To         string
	Subject    string
	Text       string
	HTML       string
	Attachment *Attachment
}

// Render builds the digest email for job from its folded summaries.
func Render(job *Job, summaries []outcome.ModuleSummary) (Message, error) {
	header := reportHeader(job.Variant)
	records := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		records = append(records, reportRecord(job.Variant, s))
	}

	var text bytes.Buffer
	fmt.Fprintf(&text, "Module outcomes for %s on %s\n\n", subjectLabel(job), job.Date)
	if len(records) == 0 {
		text.WriteString("No tasks were recorded for this day.\n")
	} else {
		table := tablewriter.NewWriter(&text)
		table.SetHeader(header)
		table.SetAutoFormatHeaders(false)
		table.AppendBulk(records)
		table.Render()
	}

	var attachment bytes.Buffer
	writer := csv.NewWriter(&attachment)
	if err := writer.Write(header); err != nil {
		return Message{}, fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err := writer.WriteAll(records); err != nil {
		return Message{}, fmt.Errorf("failed to write CSV rows: %w", err)
	}

	return Message{
		To:      job.Recipient,
		Subject: fmt.Sprintf("Module outcomes %s %s", subjectLabel(job), job.Date),
		Text:    text.String(),
		HTML:    "<pre>" + html.EscapeString(text.String()) + "</pre>",
		Attachment: &Attachment{
			Filename:    fmt.Sprintf("module_outcomes_%s_%s.csv", job.Variant, job.Date),
			ContentType: "text/csv",
			Content:     attachment.Bytes(),
		},
	}, nil
}

func subjectLabel(job *Job) string {
	if job.Client != "" {
		return "client " + job.Client
	}
	return "provider " + job.Provider
}

func reportHeader(variant outcome.Variant) []string {
	header := []string{"module", "total", "success", "success_rate"}
	if variant == outcome.VariantLatency {
		header = append(header, "ttfb_p50", "ttfb_p95")
	}
	return header
}

func reportRecord(variant outcome.Variant, s outcome.ModuleSummary) []string {
	rate := 0.0
	if s.Total > 0 {
		rate = float64(s.Success) / float64(s.Total) * 100
	}

	record := []string{
		s.Module,
		strconv.FormatInt(s.Total, 10),
		strconv.FormatInt(s.Success, 10),
		strconv.FormatFloat(rate, 'f', 1, 64) + "%",
	}
	if variant == outcome.VariantLatency {
		record = append(record, formatMillis(s.TTFBP50), formatMillis(s.TTFBP95))
	}
	return record
}

func formatMillis(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 1, 64)
}
