package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"gitorbit/internal/domain"
)

// HourFormat selects the clock used when showing dates
type HourFormat string

const (
	Hour12 HourFormat = "12h"
	Hour24 HourFormat = "24h"
)

// DiffViewType is the preferred diff layout
type DiffViewType string

const (
	DiffUnified DiffViewType = "unified"
	DiffSplit   DiffViewType = "split"
)

// ExternalGitClient identifies the program opened for a repository
type ExternalGitClient string

const (
	ExternalGitClientNone          ExternalGitClient = ""
	ExternalGitClientGitHubDesktop ExternalGitClient = "GitHubDesktop"
	ExternalGitClientCustom        ExternalGitClient = "Custom"
)

// ExternalEditor is a program files can be opened with
type ExternalEditor struct {
	Name       string `json:"name" validate:"required"`
	Executable string `json:"executable" validate:"required"`
}

// Settings are the user preferences stored in the app data file
type Settings struct {
	AppDataPath                      string            `json:"appDataPath" validate:"required"`
	Concurrency                      int               `json:"concurrency" validate:"min=1"`
	RecentCommandsToSave             int               `json:"recentCommandsToSave" validate:"min=0"`
	PeriodicallyFetchEnabled         bool              `json:"periodicallyFetchEnabled"`
	PeriodicallyFetchIntervalMinutes int               `json:"periodicallyFetchIntervalMinutes" validate:"min=1"`
	ExternalGitClient                ExternalGitClient `json:"externalGitClient,omitempty" validate:"omitempty,oneof=GitHubDesktop Custom"`
	ExternalGitClientCustomCommand   string            `json:"externalGitClientCustomCommand,omitempty" validate:"required_if=ExternalGitClient Custom"`
	HourFormat                       HourFormat        `json:"hourFormat" validate:"oneof=12h 24h"`
	ExternalEditors                  []ExternalEditor  `json:"externalEditors" validate:"dive"`
}

// DefaultSettings returns the first-run settings
func DefaultSettings(appDataPath string) Settings {
	return Settings{
		AppDataPath:                      appDataPath,
		Concurrency:                      10,
		RecentCommandsToSave:             10,
		PeriodicallyFetchEnabled:         true,
		PeriodicallyFetchIntervalMinutes: 60,
		HourFormat:                       Hour24,
		ExternalEditors:                  []ExternalEditor{},
	}
}

// ExternalGitClientCommand returns the launch command line for the configured client
func (s Settings) ExternalGitClientCommand() (string, error) {
	switch s.ExternalGitClient {
	case ExternalGitClientGitHubDesktop:
		return "github {repositoryPath}", nil
	case ExternalGitClientCustom:
		if strings.TrimSpace(s.ExternalGitClientCustomCommand) == "" {
			return "", fmt.Errorf("%w: custom client has no command", domain.ErrNoExternalGitClient)
		}
		return s.ExternalGitClientCustomCommand, nil
	default:
		return "", domain.ErrNoExternalGitClient
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validator returns the shared validator instance
func Validator() *validator.Validate {
	return validate
}

// Validate checks the settings, wrapping failures in domain.ErrInvalidSettings
func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, describe(fe))
			}
			return fmt.Errorf("%w: %s", domain.ErrInvalidSettings, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", domain.ErrInvalidSettings, err)
	}
	return nil
}

// Repair resets every invalid field to its default. It returns the repaired
// settings and one message per field that was reset.
func (s Settings) Repair(appDataPath string) (Settings, []string) {
	var verrs validator.ValidationErrors
	if !errors.As(validate.Struct(s), &verrs) {
		return s, nil
	}

	def := DefaultSettings(appDataPath)
	var reset []string
	for _, fe := range verrs {
		switch fe.StructField() {
		case "AppDataPath":
			s.AppDataPath = def.AppDataPath
		case "Concurrency":
			s.Concurrency = def.Concurrency
		case "RecentCommandsToSave":
			s.RecentCommandsToSave = def.RecentCommandsToSave
		case "PeriodicallyFetchIntervalMinutes":
			s.PeriodicallyFetchIntervalMinutes = def.PeriodicallyFetchIntervalMinutes
		case "HourFormat":
			s.HourFormat = def.HourFormat
		case "ExternalGitClient", "ExternalGitClientCustomCommand":
			s.ExternalGitClient = def.ExternalGitClient
			s.ExternalGitClientCustomCommand = def.ExternalGitClientCustomCommand
		default:
			// editor entries
			s.ExternalEditors = lo.Filter(s.ExternalEditors, func(e ExternalEditor, _ int) bool {
				return e.Name != "" && e.Executable != ""
			})
		}
		reset = append(reset, describe(fe))
	}
	return s, reset
}

func describe(fe validator.FieldError) string {
	switch fe.StructField() {
	case "AppDataPath":
		return "app data file path must be provided"
	case "Concurrency":
		return "concurrency must be at least 1"
	case "RecentCommandsToSave":
		return "recent commands to save cannot be negative"
	case "PeriodicallyFetchIntervalMinutes":
		return "fetch interval must be greater than 0"
	case "ExternalGitClientCustomCommand":
		return "a command to launch the external git client is required"
	case "ExternalGitClient":
		return fmt.Sprintf("unknown external git client %q", fe.Value())
	case "HourFormat":
		return fmt.Sprintf("hour format must be 12h or 24h, got %q", fe.Value())
	}
	return fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag())
}
