package genai

import (
	"fmt"
	"strings"
)

const (
	restoreTemperature = 0.3
	mergeBaseTemp      = 0.4
	mergeTempStep      = 0.1
	generateBaseTemp   = 0.7
	generateTempStep   = 0.1
	chatTemperature    = 0.7
)

var allowedAspectRatios = map[string]struct{}{
	"1:1":  {},
	"2:3":  {},
	"3:2":  {},
	"3:4":  {},
	"4:3":  {},
	"4:5":  {},
	"5:4":  {},
	"9:16": {},
	"16:9": {},
	"21:9": {},
}

// NormalizeAspectRatio returns a supported aspect ratio, defaulting to 1:1.
func NormalizeAspectRatio(aspect string) string {
	aspect = strings.TrimSpace(aspect)
	if _, ok := allowedAspectRatios[aspect]; ok {
		return aspect
	}
	return "1:1"
}

func descriptionLanguage(locale string) string {
	switch strings.ToLower(strings.TrimSpace(locale)) {
	case "en":
		return "English"
	case "es":
		return "Spanish"
	default:
		return "Brazilian Portuguese"
	}
}

func restoreSystemInstruction(locale string) string {
	return strings.Join([]string{
		"You are a professional photo restoration specialist.",
		"Preserve the identity, facial features, expression, pose and composition of every subject exactly; never invent people or objects.",
		"Apply only the edit requested by the user.",
		"Return exactly one image part with the edited photo and one short text part describing what was changed.",
		fmt.Sprintf("Write the description in %s, in one sentence.", descriptionLanguage(locale)),
	}, "\n")
}

func mergeSystemInstruction(locale string) string {
	return strings.Join([]string{
		"You combine the subjects of two photos into one coherent, realistic photograph.",
		"Do not produce a collage, split screen or side-by-side layout.",
		"Match lighting direction, color temperature, grain and perspective across all subjects so the result looks captured in a single shot.",
		"Preserve the identity of every person from both inputs.",
		fmt.Sprintf("Return one image part and one short description in %s.", descriptionLanguage(locale)),
	}, "\n")
}

func generateSystemInstruction(locale string) string {
	return strings.Join([]string{
		"You are an image generation assistant.",
		"Produce one high quality image that follows the prompt closely.",
		"When a reference image is supplied, keep its subject and overall composition recognizable.",
		fmt.Sprintf("Return one image part and one short description in %s.", descriptionLanguage(locale)),
	}, "\n")
}

func chatSystemInstruction() string {
	return "You are a friendly assistant for a photo restoration app. Answer briefly and help users pick restoration, colorization, merge or generation options."
}

func variantTemperature(base, step float64, index int) float64 {
	return base + float64(index)*step
}

func buildVariationPrompt(prompt string, total, index int) string {
	trimmed := strings.TrimSpace(prompt)
	tag := fmt.Sprintf("Variation #%d of %d.", index+1, total)
	if trimmed == "" {
		return tag
	}
	return trimmed + "\n" + tag
}
