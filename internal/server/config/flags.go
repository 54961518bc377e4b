package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/supportchat/internal/flagx"
)

var serverFlags = []string{"-a", "-d", "-s", "-t", "-r", "-o", "-m", "-n", "-u", "-p", "-l", "-q"}

// parseFlags overlays config with command-line flags. Only the flags listed
// in serverFlags are looked at, so binaries sharing this loader can define
// their own.
//
//	-a string   HTTP bind address (":8080")
//	-d string   PostgreSQL DSN
//	-s string   JWT signing secret
//	-t int      session validity, minutes
//	-r int      password reset link validity, minutes
//	-o int      per-query database timeout, seconds
//	-m string   SMTP host (empty logs emails instead of sending)
//	-n string   SMTP port
//	-u string   SMTP user
//	-p string   SMTP password
//	-l string   public app URL used in email links
//	-q int      login audit queue size
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, serverFlags)

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	sessionValidity := fs.Int("t", int(config.SessionValidityDuration.Minutes()), "session validity (in minutes)")
	resetValidity := fs.Int("r", int(config.PasswordResetValidityDuration.Minutes()), "password reset validity (in minutes)")
	dbTimeout := fs.Int("o", int(config.DBTimeout.Seconds()), "database timeout (in seconds)")

	fs.StringVar(&config.SMTPHost, "m", config.SMTPHost, "SMTP host")
	fs.StringVar(&config.SMTPPort, "n", config.SMTPPort, "SMTP port")
	fs.StringVar(&config.SMTPUser, "u", config.SMTPUser, "SMTP user")
	fs.StringVar(&config.SMTPPassword, "p", config.SMTPPassword, "SMTP password")
	fs.StringVar(&config.AppURL, "l", config.AppURL, "public app URL")
	fs.IntVar(&config.AuditQueueSize, "q", config.AuditQueueSize, "login audit queue size")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	config.SessionValidityDuration = time.Duration(*sessionValidity) * time.Minute
	config.PasswordResetValidityDuration = time.Duration(*resetValidity) * time.Minute
	config.DBTimeout = time.Duration(*dbTimeout) * time.Second
	return nil
}
