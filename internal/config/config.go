// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

var configFile = altsrc.StringSourcer("config.toml")

type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Server   ServerConfig
	Log      LogConfig
	Database DatabaseConfig
	Session  SessionConfig
	OTP      OTPConfig
	SMTP     SMTPConfig
	SMS      SMSConfig
	Notify   NotifyConfig
	Auth     AuthConfig
}

type ServerConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host        string
	Port        int
	BaseURL     string
	MaxBodySize int // in MB
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type DatabaseConfig struct {
	DSN string
}

type SessionConfig struct { //nolint:govet // fieldalignment not critical
	CookieName string // Session cookie name
	MaxAge     int    // Session max age in seconds
	HashKey    string // 32-byte hex string for HMAC signing
	BlockKey   string // 32-byte hex string for AES encryption (optional)
}

// OTPConfig controls code lifetime and the anti-abuse limits.
type OTPConfig struct {
	TTL           time.Duration // lifetime of an issued code
	ResendDelay   time.Duration // minimum gap between two issuances for one identifier
	MaxAttempts   int           // failed guesses before all codes are invalidated
	PurgeInterval time.Duration // housekeeping sweep interval, 0 disables it
	VerifiedTTL   time.Duration // lifetime of the verified-identifier cookie
}

// SMTPConfig configures outgoing mail. An empty Host puts the email
// channel into simulation mode.
type SMTPConfig struct { //nolint:govet // fieldalignment not critical
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	TLS      bool
}

// SMSConfig configures the Twilio gateway. Missing credentials put the SMS
// channel into simulation mode.
type SMSConfig struct {
	AccountSID     string
	AuthToken      string
	From           string
	CountryCode    string // e.g. "84"
	NationalPrefix string // e.g. "0"
}

// NotifyConfig holds the back-office contact lists.
type NotifyConfig struct {
	AdminEmails []string
	AdminPhones []string
	Locale      string // language of back-office notifications
}

type AuthConfig struct {
	HashScheme    string // bcrypt, pbkdf2
	AdminEmail    string // bootstrap admin, created on startup if no admin exists
	AdminPassword string
}

// Hash schemes understood by the auth service.
const (
	HashSchemeBcrypt = "bcrypt"
	HashSchemePBKDF2 = "pbkdf2"
)

func NewFromCLI(cmd *cli.Command) *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:        cmd.String("host"),
			Port:        int(cmd.Int("port")),
			BaseURL:     cmd.String("base-url"),
			MaxBodySize: int(cmd.Int("max-body-size")),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Database: DatabaseConfig{
			DSN: cmd.String("database-dsn"),
		},
		Session: SessionConfig{
			CookieName: cmd.String("session-cookie-name"),
			MaxAge:     int(cmd.Int("session-max-age")),
			HashKey:    cmd.String("session-hash-key"),
			BlockKey:   cmd.String("session-block-key"),
		},
		OTP: OTPConfig{
			TTL:           cmd.Duration("otp-ttl"),
			ResendDelay:   cmd.Duration("otp-resend-delay"),
			MaxAttempts:   int(cmd.Int("otp-max-attempts")),
			PurgeInterval: cmd.Duration("otp-purge-interval"),
			VerifiedTTL:   cmd.Duration("otp-verified-ttl"),
		},
		SMTP: SMTPConfig{
			Host:     cmd.String("smtp-host"),
			Port:     int(cmd.Int("smtp-port")),
			Username: cmd.String("smtp-username"),
			Password: cmd.String("smtp-password"),
			From:     cmd.String("smtp-from"),
			FromName: cmd.String("smtp-from-name"),
			TLS:      cmd.Bool("smtp-tls"),
		},
		SMS: SMSConfig{
			AccountSID:     cmd.String("sms-account-sid"),
			AuthToken:      cmd.String("sms-auth-token"),
			From:           cmd.String("sms-from"),
			CountryCode:    cmd.String("sms-country-code"),
			NationalPrefix: cmd.String("sms-national-prefix"),
		},
		Notify: NotifyConfig{
			AdminEmails: splitList(cmd.StringSlice("notify-admin-emails")),
			AdminPhones: splitList(cmd.StringSlice("notify-admin-phones")),
			Locale:      cmd.String("notify-locale"),
		},
		Auth: AuthConfig{
			HashScheme:    strings.ToLower(cmd.String("auth-hash-scheme")),
			AdminEmail:    cmd.String("auth-admin-email"),
			AdminPassword: cmd.String("auth-admin-password"),
		},
	}

	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = buildBaseURL(cfg)
	}

	return cfg
}

// Validate reports configuration values the services cannot work with.
func (c *Config) Validate() error {
	var errs []error
	if c.OTP.TTL <= 0 {
		errs = append(errs, errors.New("otp ttl must be positive"))
	}
	if c.OTP.ResendDelay < 0 {
		errs = append(errs, errors.New("otp resend delay must not be negative"))
	}
	if c.OTP.MaxAttempts < 1 {
		errs = append(errs, errors.New("otp max attempts must be at least 1"))
	}
	switch c.Auth.HashScheme {
	case HashSchemeBcrypt, HashSchemePBKDF2:
	default:
		errs = append(errs, fmt.Errorf("unknown hash scheme %q", c.Auth.HashScheme))
	}
	return errors.Join(errs...)
}

// SecureCookies reports whether cookies should carry the Secure flag.
func (c *Config) SecureCookies() bool {
	return strings.HasPrefix(c.Server.BaseURL, "https://")
}

func buildBaseURL(cfg *Config) string {
	host := cfg.Server.Host
	if host == "" {
		host = "localhost"
	}
	if cfg.Server.Port == 80 {
		return fmt.Sprintf("http://%s", host)
	}
	return fmt.Sprintf("http://%s:%d", host, cfg.Server.Port)
}

// splitList flattens comma-separated entries and drops blanks.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for part := range strings.SplitSeq(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func source(env, key string) cli.ValueSourceChain {
	return cli.NewValueSourceChain(cli.EnvVar(env), toml.TOML(key, configFile))
}

func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "Host to bind to",
			Sources: source("HOST", "server.host"),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "Port to listen on",
			Sources: source("PORT", "server.port"),
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Base URL for the application",
			Sources: source("BASE_URL", "server.base_url"),
		},
		&cli.IntFlag{
			Name:    "max-body-size",
			Value:   1,
			Usage:   "Maximum request body size in MB",
			Sources: source("MAX_BODY_SIZE", "server.max_body_size"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: source("LOG_LEVEL", "log.level"),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format (text, json)",
			Sources: source("LOG_FORMAT", "log.format"),
		},
		&cli.StringFlag{
			Name:    "database-dsn",
			Value:   "./data/app.db",
			Usage:   "Database DSN",
			Sources: source("DATABASE_DSN", "database.dsn"),
		},
		// Session flags
		&cli.StringFlag{
			Name:    "session-cookie-name",
			Value:   "_session",
			Usage:   "Session cookie name",
			Sources: source("SESSION_COOKIE_NAME", "session.cookie_name"),
		},
		&cli.IntFlag{
			Name:    "session-max-age",
			Value:   28800, // 8 hours in seconds
			Usage:   "Session max age in seconds",
			Sources: source("SESSION_MAX_AGE", "session.max_age"),
		},
		&cli.StringFlag{
			Name:    "session-hash-key",
			Usage:   "Session hash key (32-byte hex, auto-generated if empty in dev)",
			Sources: source("SESSION_HASH_KEY", "session.hash_key"),
		},
		&cli.StringFlag{
			Name:    "session-block-key",
			Usage:   "Session block key for encryption (32-byte hex, optional)",
			Sources: source("SESSION_BLOCK_KEY", "session.block_key"),
		},
		// OTP flags
		&cli.DurationFlag{
			Name:    "otp-ttl",
			Value:   time.Minute,
			Usage:   "Lifetime of a one-time code",
			Sources: source("OTP_TTL", "otp.ttl"),
		},
		&cli.DurationFlag{
			Name:    "otp-resend-delay",
			Value:   time.Minute,
			Usage:   "Minimum delay before a new code can be requested",
			Sources: source("OTP_RESEND_DELAY", "otp.resend_delay"),
		},
		&cli.IntFlag{
			Name:    "otp-max-attempts",
			Value:   3,
			Usage:   "Failed verifications before the active code is invalidated",
			Sources: source("OTP_MAX_ATTEMPTS", "otp.max_attempts"),
		},
		&cli.DurationFlag{
			Name:    "otp-purge-interval",
			Value:   time.Hour,
			Usage:   "Interval of the expired code sweep (0 disables it)",
			Sources: source("OTP_PURGE_INTERVAL", "otp.purge_interval"),
		},
		&cli.DurationFlag{
			Name:    "otp-verified-ttl",
			Value:   30 * time.Minute,
			Usage:   "How long a verified phone may submit an application",
			Sources: source("OTP_VERIFIED_TTL", "otp.verified_ttl"),
		},
		// SMTP flags
		&cli.StringFlag{
			Name:    "smtp-host",
			Usage:   "SMTP host (empty simulates delivery)",
			Sources: source("SMTP_HOST", "smtp.host"),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Value:   587,
			Usage:   "SMTP port",
			Sources: source("SMTP_PORT", "smtp.port"),
		},
		&cli.StringFlag{
			Name:    "smtp-username",
			Usage:   "SMTP username",
			Sources: source("SMTP_USERNAME", "smtp.username"),
		},
		&cli.StringFlag{
			Name:    "smtp-password",
			Usage:   "SMTP password",
			Sources: source("SMTP_PASSWORD", "smtp.password"),
		},
		&cli.StringFlag{
			Name:    "smtp-from",
			Value:   "noreply@localhost",
			Usage:   "Sender address",
			Sources: source("SMTP_FROM", "smtp.from"),
		},
		&cli.StringFlag{
			Name:    "smtp-from-name",
			Usage:   "Sender display name",
			Sources: source("SMTP_FROM_NAME", "smtp.from_name"),
		},
		&cli.BoolFlag{
			Name:    "smtp-tls",
			Value:   true,
			Usage:   "Require TLS for SMTP",
			Sources: source("SMTP_TLS", "smtp.tls"),
		},
		// SMS flags
		&cli.StringFlag{
			Name:    "sms-account-sid",
			Usage:   "Twilio account SID (empty simulates delivery)",
			Sources: source("SMS_ACCOUNT_SID", "sms.account_sid"),
		},
		&cli.StringFlag{
			Name:    "sms-auth-token",
			Usage:   "Twilio auth token",
			Sources: source("SMS_AUTH_TOKEN", "sms.auth_token"),
		},
		&cli.StringFlag{
			Name:    "sms-from",
			Usage:   "Sender phone number",
			Sources: source("SMS_FROM", "sms.from"),
		},
		&cli.StringFlag{
			Name:    "sms-country-code",
			Value:   "84",
			Usage:   "Country code replacing the national prefix",
			Sources: source("SMS_COUNTRY_CODE", "sms.country_code"),
		},
		&cli.StringFlag{
			Name:    "sms-national-prefix",
			Value:   "0",
			Usage:   "National dialing prefix",
			Sources: source("SMS_NATIONAL_PREFIX", "sms.national_prefix"),
		},
		// Notification flags
		&cli.StringSliceFlag{
			Name:    "notify-admin-emails",
			Usage:   "Admin email addresses notified about new applications",
			Sources: source("NOTIFY_ADMIN_EMAILS", "notify.admin_emails"),
		},
		&cli.StringSliceFlag{
			Name:    "notify-admin-phones",
			Usage:   "Admin phone numbers notified about new applications",
			Sources: source("NOTIFY_ADMIN_PHONES", "notify.admin_phones"),
		},
		&cli.StringFlag{
			Name:    "notify-locale",
			Value:   "vi",
			Usage:   "Language of admin notifications (en, vi)",
			Sources: source("NOTIFY_LOCALE", "notify.locale"),
		},
		// Auth flags
		&cli.StringFlag{
			Name:    "auth-hash-scheme",
			Value:   HashSchemeBcrypt,
			Usage:   "Password hash scheme for new hashes (bcrypt, pbkdf2)",
			Sources: source("AUTH_HASH_SCHEME", "auth.hash_scheme"),
		},
		&cli.StringFlag{
			Name:    "auth-admin-email",
			Usage:   "Bootstrap admin email",
			Sources: source("AUTH_ADMIN_EMAIL", "auth.admin_email"),
		},
		&cli.StringFlag{
			Name:    "auth-admin-password",
			Usage:   "Bootstrap admin password",
			Sources: source("AUTH_ADMIN_PASSWORD", "auth.admin_password"),
		},
	}
}
