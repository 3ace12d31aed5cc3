package settings

import "time"

// Theme is the display theme preference.
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// DefaultMonthlyTargetHours is used until the technician sets a target.
const DefaultMonthlyTargetHours = 160

// Settings is the per-technician configuration singleton.
type Settings struct {
	PINHash            string     `json:"-"`
	IsAuthenticated    bool       `json:"isAuthenticated"`
	MonthlyTargetHours float64    `json:"monthlyTargetHours"`
	AbsenceHours       float64    `json:"absenceHours"`
	AbsenceMonth       time.Month `json:"absenceMonth"`
	AbsenceYear        int        `json:"absenceYear"`
	Theme              Theme      `json:"theme"`
	BiometricEnabled   bool       `json:"biometricEnabled"`
	TechnicianName     string     `json:"technicianName,omitempty"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// Defaults returns settings for a technician who has never saved any.
func Defaults() Settings {
	return Settings{
		MonthlyTargetHours: DefaultMonthlyTargetHours,
		Theme:              ThemeSystem,
	}
}

// HasPIN reports whether a PIN has been configured.
func (s Settings) HasPIN() bool {
	return s.PINHash != ""
}

// ParseTheme validates a theme name.
func ParseTheme(v string) (Theme, bool) {
	switch Theme(v) {
	case ThemeLight, ThemeDark, ThemeSystem:
		return Theme(v), true
	default:
		return "", false
	}
}
