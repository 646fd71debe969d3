package models

// Settings are persisted between runs. Saves replace the whole value.
type Settings struct {
	Model            string `json:"model" yaml:"model" toml:"model"`
	APIKey           string `json:"apiKey" yaml:"apiKey" toml:"apiKey"`
	DeveloperMessage string `json:"developerMessage" yaml:"developerMessage" toml:"developerMessage"`
	PortOverride     string `json:"portOverride" yaml:"portOverride" toml:"portOverride"`
}

// Settings keys, as stored by key/value backends.
const (
	SettingsKeyModel            = "model"
	SettingsKeyAPIKey           = "apiKey"
	SettingsKeyDeveloperMessage = "developerMessage"
	SettingsKeyPortOverride     = "portOverride"
)

// Map returns the settings as a key/value map.
func (s Settings) Map() map[string]string {
	return map[string]string{
		SettingsKeyModel:            s.Model,
		SettingsKeyAPIKey:           s.APIKey,
		SettingsKeyDeveloperMessage: s.DeveloperMessage,
		SettingsKeyPortOverride:     s.PortOverride,
	}
}

// SettingsFromMap is the inverse of Settings.Map. Unknown keys are ignored.
func SettingsFromMap(m map[string]string) Settings {
	return Settings{
		Model:            m[SettingsKeyModel],
		APIKey:           m[SettingsKeyAPIKey],
		DeveloperMessage: m[SettingsKeyDeveloperMessage],
		PortOverride:     m[SettingsKeyPortOverride],
	}
}
