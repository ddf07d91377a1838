package ports

import "github.com/aretw0/umlpreview/pkg/domain"

// SettingsProvider resolves configuration per source location.
type SettingsProvider interface {
	Settings(location string) domain.Settings
}

// StaticSettings serves the same settings for every location.
type StaticSettings domain.Settings

// Settings implements SettingsProvider.
func (s StaticSettings) Settings(string) domain.Settings {
	return domain.Settings(s)
}
