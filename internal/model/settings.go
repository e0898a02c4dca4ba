package model

import "time"

// DispatchSettings is the centrally stored delivery configuration. Ceilings
// and SMTP state are read at dispatch time so administrators can change them
// without a restart. A ceiling of zero means the window is unlimited.
type DispatchSettings struct {
	SMTPEnabled   bool      `json:"smtp_enabled" db:"smtp_enabled"`
	SMTPHost      string    `json:"smtp_host" db:"smtp_host"`
	SMTPPort      int       `json:"smtp_port" db:"smtp_port"`
	SMTPUser      string    `json:"smtp_user" db:"smtp_user"`
	SMTPPassword  string    `json:"-" db:"smtp_password"`
	SenderEmail   string    `json:"sender_email" db:"sender_email"`
	HourlyCeiling int       `json:"hourly_ceiling" db:"hourly_ceiling"`
	DailyCeiling  int       `json:"daily_ceiling" db:"daily_ceiling"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// MailEnabled reports whether the deployment has a usable delivery
// configuration.
func (s *DispatchSettings) MailEnabled() bool {
	return s != nil && s.SMTPEnabled && s.SMTPHost != ""
}
