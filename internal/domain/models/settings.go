package models

// Theme selects the UI theme.
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemePastel Theme = "pastel"
)

// Settings is the per-user settings singleton.
type Settings struct {
	EnabledServices []ServiceType `json:"enabledServices"`
	Theme           Theme         `json:"theme"`
	IsPro           bool          `json:"isPro"`
}

// DefaultSettings returns the settings a fresh install starts with: every
// service enabled, pastel theme, free tier.
func DefaultSettings() Settings {
	enabled := make([]ServiceType, len(AllServices))
	copy(enabled, AllServices)
	return Settings{
		EnabledServices: enabled,
		Theme:           ThemePastel,
		IsPro:           false,
	}
}

// ServiceEnabled reports whether the given event type is offered.
func (s Settings) ServiceEnabled(t ServiceType) bool {
	for _, svc := range s.EnabledServices {
		if svc == t {
			return true
		}
	}
	return false
}

// Clone returns an independent copy.
func (s Settings) Clone() Settings {
	out := s
	out.EnabledServices = make([]ServiceType, len(s.EnabledServices))
	copy(out.EnabledServices, s.EnabledServices)
	return out
}
