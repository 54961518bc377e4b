package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/supportchat/internal/flagx"
	"github.com/dmitrijs2005/supportchat/internal/timex"
)

// JsonConfig mirrors Config for file input. Durations accept "24h" style
// strings or integer nanoseconds. Absent keys leave the current value alone.
type JsonConfig struct {
	EndpointAddrHTTP              string         `json:"endpoint_addr_http"`
	DatabaseDSN                   string         `json:"database_dsn"`
	SecretKey                     string         `json:"secret_key"`
	SessionValidityDuration       timex.Duration `json:"session_validity_duration"`
	PasswordResetValidityDuration timex.Duration `json:"password_reset_validity_duration"`
	DBTimeout                     timex.Duration `json:"db_timeout"`
	SMTPHost                      string         `json:"smtp_host"`
	SMTPPort                      string         `json:"smtp_port"`
	SMTPUser                      string         `json:"smtp_user"`
	SMTPPassword                  string         `json:"smtp_password"`
	AppURL                        string         `json:"app_url"`
	AuditQueueSize                int            `json:"audit_queue_size"`
}

// parseJson overlays config with the file named by -c/-config, if any.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.SMTPHost, c.SMTPHost)
	setString(&config.SMTPPort, c.SMTPPort)
	setString(&config.SMTPUser, c.SMTPUser)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.AppURL, c.AppURL)

	if c.SessionValidityDuration.Duration > 0 {
		config.SessionValidityDuration = c.SessionValidityDuration.Duration
	}
	if c.PasswordResetValidityDuration.Duration > 0 {
		config.PasswordResetValidityDuration = c.PasswordResetValidityDuration.Duration
	}
	if c.DBTimeout.Duration > 0 {
		config.DBTimeout = c.DBTimeout.Duration
	}
	if c.AuditQueueSize > 0 {
		config.AuditQueueSize = c.AuditQueueSize
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
