package report

import (
	"fmt"
	"strings"

	"github.com/kdimtricp/ansimtalk/internal/models"
)

const textSummaryLimit = 500

// RenderText is the plain-text report served when PDF rendering fails.
func RenderText(doc *Document) string {
	r := doc.Result
	var b strings.Builder

	b.WriteString("DIGITAL EVIDENCE ANALYSIS REPORT\n")
	b.WriteString("AI-Based Deepfake and Cyberbullying Analysis\n")
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	b.WriteString("I. CASE AND EVIDENCE OVERVIEW\n")
	b.WriteString("A. Case Information\n")
	fmt.Fprintf(&b, "Case Management Number: %s\n", doc.CaseNumber)
	fmt.Fprintf(&b, "Report ID: %s\n", doc.ReportID)
	fmt.Fprintf(&b, "Issue Date: %s\n", doc.CreatedAt.Format("2006-01-02"))
	fmt.Fprintf(&b, "Platform: %s\n\n", doc.Platform)

	b.WriteString("II. AI-BASED FORENSIC ANALYSIS\n")
	b.WriteString("A. Comprehensive Analysis Results\n")
	switch {
	case r.Error != "":
		fmt.Fprintf(&b, "Analysis Error: %s\n", r.Error)
	case r.Type == models.AnalysisDeepfake && r.Deepfake != nil:
		if r.Deepfake.Error != "" {
			fmt.Fprintf(&b, "Deepfake Detection Error: %s\n", r.Deepfake.Error)
		} else if r.Deepfake.Probability != nil {
			fmt.Fprintf(&b, "Deepfake Detection: %.1f%% probability\n", *r.Deepfake.Probability*100)
		} else {
			b.WriteString("Deepfake Detection: N/A\n")
		}
	case r.Type == models.AnalysisCyberbullying && r.Cyberbullying != nil:
		summary := r.Cyberbullying.Summary
		if len([]rune(summary)) > textSummaryLimit {
			summary = truncateRunes(summary, textSummaryLimit) + "..."
		}
		fmt.Fprintf(&b, "Cyberbullying Analysis: %s\n", summary)
	}

	b.WriteString("\nIII. EVIDENTIARY INTEGRITY\n")
	fmt.Fprintf(&b, "SHA-256 Hash: %s\n", orNA(r.SHA256))
	fmt.Fprintf(&b, "Analysis Timestamp: %s\n", r.AnalyzedAt.Format(timeLayout))
	fmt.Fprintf(&b, "Analysis Type: %s\n", orNA(string(r.Type)))

	if len(doc.Custody) > 0 {
		b.WriteString("\nIV. CHAIN OF CUSTODY\n")
		for _, row := range doc.Custody {
			fmt.Fprintf(&b, "%s  %s  %s\n", row.Timestamp, row.Step, row.Server)
		}
	}

	b.WriteString("\n" + DisclaimerEN + "\n")
	return b.String()
}
