package provider

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BuildSystemPrompt instructs a provider to act as a pedagogical assessor and
// to answer strictly in the analysis JSON shape, in the requested language.
func BuildSystemPrompt(req Request) string {
	lang := req.TargetLanguage
	if lang == "" {
		lang = "de"
	}
	parts := []string{
		"You are an experienced primary-school teacher assessing a photographed, corrected school test.",
		"Return ONLY JSON that matches the JSON Schema provided.",
		"Write all free-text fields in language: " + lang + ".",
		"Grades follow the German scale 1 (best) to 6 (worst); keep modifiers like '2+' if the teacher wrote them.",
		"If no grade is visible or deducible, set summary.grade to \"unable to determine\"; never invent a grade.",
		"Recommendations must be concrete and actionable for parents, each with priority, category, timeframe and rationale.",
		"List observed strengths and weaknesses as short standalone phrases.",
		"Never output null. If a field is unknown, omit it.",
	}
	if req.Profile.Name != "" {
		parts = append(parts, "The student's name is "+req.Profile.Name+".")
	}
	if req.Profile.GradeLevel != "" {
		parts = append(parts, "The student attends "+req.Profile.GradeLevel+".")
	}
	return strings.Join(parts, " ")
}

// BuildUserPrompt combines the resolved document text with the pixel-level
// visual evidence so the model can cross-check the teacher's markings.
func BuildUserPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("Recognized test text (OCR, confidence ")
	fmt.Fprintf(&b, "%.2f", req.OCRConfidence)
	b.WriteString("):\n")
	text := req.Text
	if len(text) > 6000 {
		text = text[:6000]
	}
	b.WriteString(text)

	if ev := req.Evidence; ev != nil {
		b.WriteString("\n\nVisual evidence from the scanned sheet (pixel heuristics, independent of OCR):\n")
		if ev.DetectedGrade != nil {
			fmt.Fprintf(&b, "- grade marking detected: %d\n", *ev.DetectedGrade)
		}
		if ev.Points != nil {
			fmt.Fprintf(&b, "- points tally detected: %s\n", *ev.Points)
		}
		if ev.TeacherComment != nil {
			fmt.Fprintf(&b, "- teacher comment snippet: %q\n", *ev.TeacherComment)
		}
		if len(ev.MarkSymbols) > 0 {
			fmt.Fprintf(&b, "- correction marks seen: %s\n", strings.Join(ev.MarkSymbols, " "))
		}
		fmt.Fprintf(&b, "- correction-ink density: %.3f\n", ev.CorrectionDensity)
		fmt.Fprintf(&b, "- flagged answer regions: %d\n", len(ev.AnswerRegions))
	}
	return b.String()
}

// SchemaJSON renders the analysis schema for inclusion in a prompt.
func SchemaJSON() string {
	b, _ := json.MarshalIndent(BuildAnalysisJSONSchema(), "", "  ")
	return string(b)
}
