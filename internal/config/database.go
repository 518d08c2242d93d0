// internal/config/database.go
package config

import (
	"fmt"
)

// DSN is the keyword/value connection string shared by the gorm pool and
// the LISTEN connection.
func (d *DatabaseConfig) DSN() string {
	return d.dsn("angel-fit")
}

// ListenerDSN tags the notification connection so it can be told apart in
// pg_stat_activity.
func (d *DatabaseConfig) ListenerDSN() string {
	return d.dsn("angel-fit-listener")
}

func (d *DatabaseConfig) dsn(application string) string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s application_name=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode, application,
	)
}
