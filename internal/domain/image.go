package domain

import "time"

// Mode labels the kind of edit applied to a photo.
type Mode string

const (
	ModeRestore  Mode = "restore"
	ModeColorize Mode = "colorize"
	ModeEnhance  Mode = "enhance"
	ModeCustom   Mode = "custom"
)

const (
	DefaultImageModel  = "gemini-2.5-flash-image"
	DefaultTextModel   = "gemini-2.5-flash"
	DefaultAspectRatio = "1:1"
	// MaxVariants caps fan-out for merge and generate requests.
	MaxVariants = 4
	// HistoryLimit is the number of HistoryItems kept in the persisted log.
	HistoryLimit = 15
)

var defaultInstructions = map[Mode]string{
	ModeRestore:  "Restore this old photo: remove scratches, dust, tears and noise, recover faded detail and sharpen softly.",
	ModeColorize: "Colorize this black and white photo with natural, period-accurate colors.",
	ModeEnhance:  "Enhance this photo: improve exposure, contrast and sharpness without changing its content.",
}

// Instruction returns the preset instruction for a mode. Custom and unknown
// modes return the empty string.
func (m Mode) Instruction() string {
	return defaultInstructions[m]
}

// NormalizeMode maps free-form input onto a known mode.
func NormalizeMode(raw string) Mode {
	switch Mode(raw) {
	case ModeRestore, ModeColorize, ModeEnhance:
		return Mode(raw)
	default:
		return ModeCustom
	}
}

// ProcessResult is the normalized outcome of one generation call. Payload is
// always a data URL.
type ProcessResult struct {
	Payload     string `json:"base64"`
	ModelID     string `json:"model,omitempty"`
	Description string `json:"description,omitempty"`
}

type RestoreRequest struct {
	Image       string
	MimeType    string
	Instruction string
	Model       string
	Locale      string
}

type MergeRequest struct {
	ImageA      string
	MimeA       string
	ImageB      string
	MimeB       string
	Instruction string
	Count       int
	Locale      string
}

type GenerateRequest struct {
	Prompt      string
	Count       int
	AspectRatio string
	BaseImage   string
	BaseMime    string
	Locale      string
}

// HistoryItem is one entry of the persisted edit log.
type HistoryItem struct {
	ID          string    `json:"id"`
	Original    string    `json:"original"`
	Processed   string    `json:"processed"`
	Mode        Mode      `json:"mode"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description,omitempty"`
}

// ClampVariants bounds a requested variant count to 1..MaxVariants.
func ClampVariants(count int) int {
	if count <= 0 {
		return 1
	}
	if count > MaxVariants {
		return MaxVariants
	}
	return count
}
