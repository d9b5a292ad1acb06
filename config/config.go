// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
)

var (
	validLogLevels = []string{"debug", "info", "warn", "error", "fatal"}
	validDrivers   = []string{"sqlite", "postgres"}
)

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Setup() error {
	pflag.Parse()
	v.BindPFlags(pflag.CommandLine)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")

	v.AutomaticEnv()

	//
	// ENVS
	//
	v.BindEnv("app.log_level", "app_log_level")

	v.BindEnv("host.port", "host_port")
	v.BindEnv("host.domain", "host_domain")
	v.BindEnv("host.ssl.enabled", "host_ssl_enabled")

	v.BindEnv("db.driver", "db_driver")
	v.BindEnv("db.dsn", "db_dsn")

	v.BindEnv("auth.otp_ttl_minutes", "auth_otp_ttl_minutes")
	v.BindEnv("auth.otp_length", "auth_otp_length")
	v.BindEnv("auth.nonce_ttl_minutes", "auth_nonce_ttl_minutes")
	v.BindEnv("auth.channel_ttl_minutes", "auth_channel_ttl_minutes")

	v.BindEnv("session.ttl_days", "session_ttl_days")
	v.BindEnv("session.extend_threshold_days", "session_extend_threshold_days")
	v.BindEnv("session.extension_days", "session_extension_days")

	v.BindEnv("signer.app_fid", "signer_app_fid")
	v.BindEnv("signer.mnemonic", "signer_mnemonic")
	v.BindEnv("signer.approval_ttl_hours", "signer_approval_ttl_hours")

	v.BindEnv("farcaster.api_base_url", "farcaster_api_base_url")
	v.BindEnv("farcaster.relay_base_url", "farcaster_relay_base_url")
	v.BindEnv("farcaster.api_key", "farcaster_api_key")
	v.BindEnv("farcaster.timeout_seconds", "farcaster_timeout_seconds")

	v.BindEnv("mail.host", "mail_host")
	v.BindEnv("mail.port", "mail_port")
	v.BindEnv("mail.sender_address", "mail_sender_address")
	v.BindEnv("mail.password", "mail_password")

	v.BindEnv("maintenance.sweep_schedule", "maintenance_sweep_schedule")

	//
	// Defaults
	//
	v.SetDefault("app.log_level", "info")

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.domain", "localhost")
	v.SetDefault("host.ssl.enabled", false)

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "database.db")

	v.SetDefault("auth.otp_ttl_minutes", 10)
	v.SetDefault("auth.otp_length", 6)
	v.SetDefault("auth.nonce_ttl_minutes", 10)
	v.SetDefault("auth.channel_ttl_minutes", 10)

	v.SetDefault("session.ttl_days", 30)
	v.SetDefault("session.extend_threshold_days", 15)
	v.SetDefault("session.extension_days", 15)

	v.SetDefault("signer.approval_ttl_hours", 24)

	v.SetDefault("farcaster.api_base_url", "https://api.neynar.com")
	v.SetDefault("farcaster.relay_base_url", "https://relay.farcaster.xyz")
	v.SetDefault("farcaster.timeout_seconds", 10)

	v.SetDefault("mail.port", 587)

	v.SetDefault("maintenance.sweep_schedule", "@every 1h")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(v.ConfigFileNotFoundError); ok {
			return errors.New("config.toml file is missing")
		}

		return fmt.Errorf("failed to read config file, %w", err)
	}

	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return fmt.Errorf("invalid log level %q", v.GetString("app.log_level"))
	}

	if !slices.Contains(validDrivers, v.GetString("db.driver")) {
		return fmt.Errorf("invalid db driver %q", v.GetString("db.driver"))
	}

	if v.GetUint64("signer.app_fid") == 0 {
		return errors.New("signer.app_fid is required")
	}

	if v.GetString("signer.mnemonic") == "" {
		return errors.New("signer.mnemonic is required")
	}

	if v.GetString("farcaster.api_key") == "" {
		return errors.New("farcaster.api_key is required")
	}

	if v.GetString("mail.host") == "" || v.GetString("mail.sender_address") == "" {
		return errors.New("mail.host and mail.sender_address are required")
	}

	return nil
}
