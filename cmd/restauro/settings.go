package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"restauro/internal/domain"
	"restauro/internal/middleware"
)

func newSettingsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change client settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.openState(cmd.Context())
			if err != nil {
				return err
			}
			defer st.close()

			s := st.settings.Load(cmd.Context())
			fmt.Fprintf(app.Out, "theme:    %s\nlanguage: %s\nmodel:    %s\n", s.Theme, s.Language, s.PreferredModel)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <theme|language|model> <value>",
		Short: "Change one setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.openState(cmd.Context())
			if err != nil {
				return err
			}
			defer st.close()

			s := st.settings.Load(cmd.Context())
			if err := applySetting(&s, args[0], args[1]); err != nil {
				return err
			}
			st.settings.Save(cmd.Context(), s)
			fmt.Fprintf(app.Out, "%s = %s\n", args[0], args[1])
			return nil
		},
	})

	return cmd
}

func applySetting(s *domain.AppSettings, key, value string) error {
	value = strings.TrimSpace(value)
	switch strings.ToLower(key) {
	case "theme":
		if value != "dark" && value != "light" {
			return fmt.Errorf("theme must be dark or light")
		}
		s.Theme = value
	case "language":
		locale, ok := middleware.MatchLocale(value)
		if !ok {
			return fmt.Errorf("unsupported language %q (pt, en, es)", value)
		}
		s.Language = locale
	case "model", "preferredmodel":
		if value == "" {
			return fmt.Errorf("model must not be empty")
		}
		s.PreferredModel = value
	default:
		return fmt.Errorf("unknown setting %q (theme, language, model)", key)
	}
	return nil
}
