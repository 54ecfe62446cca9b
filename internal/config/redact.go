package config

import (
	"net/url"
	"regexp"
)

const redactedPassword = "xxxxx"

var kvPassword = regexp.MustCompile(`(?i)(\bpassword\s*=\s*)('[^']*'|\S+)`)

// RedactDSN masks the password in a postgres URL or key/value DSN. Other
// DSNs come back unchanged.
func RedactDSN(dsn string) string {
	if u, err := url.Parse(dsn); err == nil && u.User != nil {
		if _, ok := u.User.Password(); ok {
			return u.Redacted()
		}
		return dsn
	}
	return kvPassword.ReplaceAllString(dsn, "${1}"+redactedPassword)
}

// Redacted returns c with credentials masked, for display.
func (c Config) Redacted() Config {
	c.Database.DSN = RedactDSN(c.Database.DSN)
	return c
}

// ForSave prepares an edited config for writing back to the file. The app,
// database and logging sections may carry environment overrides; a section
// the caller sent back exactly as displayed keeps its on-disk value, so
// neither the overrides nor a masked DSN end up in the file.
func ForSave(edited, current, onDisk Config) Config {
	shown := current.Redacted()
	if edited.App == shown.App {
		edited.App = onDisk.App
	}
	if edited.Database == shown.Database {
		edited.Database = onDisk.Database
	}
	if edited.Logging == shown.Logging {
		edited.Logging = onDisk.Logging
	}
	return edited
}

// RestartRequired reports whether moving from prev to next touches settings
// that are only read at startup.
func RestartRequired(prev, next Config) bool {
	return prev.App != next.App || prev.Database != next.Database || prev.Logging != next.Logging
}
