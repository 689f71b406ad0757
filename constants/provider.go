package constants

// Provider names as recorded in results and logs.
const (
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// OCR engine names as recorded in resolution metadata.
const (
	EngineVision    = "google-vision"
	EngineTesseract = "tesseract"
)

// German school grades run 1 (best) to 6 (worst); modifiers like "2+" or "3-"
// are display-only and stripped for agreement comparison.
const (
	GradeMin = 1
	GradeMax = 6
)

// GradeUnknown is the summary grade when no provider could determine one.
// The engine reports "not found" rather than fabricating a grade.
const GradeUnknown = "unable to determine"
