package domain

import "strings"

// AppSettings is the process-wide client configuration.
type AppSettings struct {
	Theme          string `json:"theme"`
	Language       string `json:"language"`
	PreferredModel string `json:"preferredModel"`
}

const (
	DefaultTheme    = "dark"
	DefaultLanguage = "pt"
)

func DefaultSettings() AppSettings {
	return AppSettings{
		Theme:          DefaultTheme,
		Language:       DefaultLanguage,
		PreferredModel: DefaultImageModel,
	}
}

// Normalize fills blank fields with defaults.
func (s AppSettings) Normalize() AppSettings {
	def := DefaultSettings()
	if strings.TrimSpace(s.Theme) == "" {
		s.Theme = def.Theme
	}
	if strings.TrimSpace(s.Language) == "" {
		s.Language = def.Language
	}
	if strings.TrimSpace(s.PreferredModel) == "" {
		s.PreferredModel = def.PreferredModel
	}
	return s
}
