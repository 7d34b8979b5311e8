// Package conf loads the service configuration from file and environment.
package conf

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Settings is the full service configuration.
type Settings struct {
	Database      DatabaseSettings      `mapstructure:"database"`
	HTTP          HTTPSettings          `mapstructure:"http"`
	Scheduler     SchedulerSettings     `mapstructure:"scheduler"`
	Notifications NotificationsSettings `mapstructure:"notifications"`
	Actions       ActionsSettings       `mapstructure:"actions"`
}

// DatabaseSettings selects and configures the backing store.
type DatabaseSettings struct {
	Driver string `mapstructure:"driver"` // "sqlite" or "mysql"
	DSN    string `mapstructure:"dsn"`
}

// HTTPSettings configures the API server.
type HTTPSettings struct {
	Listen string `mapstructure:"listen"`
}

// SchedulerSettings configures the periodic condition evaluation loop.
type SchedulerSettings struct {
	TickInterval Duration `mapstructure:"tick_interval"`
	SeedDefaults bool     `mapstructure:"seed_defaults"`
}

// NotificationsSettings configures the delivery channels. The service URLs
// use shoutrrr syntax and may contain a "{recipient}" placeholder.
type NotificationsSettings struct {
	EmailURL       string `mapstructure:"email_url"`
	EmailRecipient string `mapstructure:"email_recipient"`
	SMSURL         string `mapstructure:"sms_url"`
	SMSRecipient   string `mapstructure:"sms_recipient"`
}

// ActionsSettings configures the side-effect action executor.
type ActionsSettings struct {
	ChatBotToken           string   `mapstructure:"chat_bot_token"`
	DefaultChatDestination string   `mapstructure:"default_chat_destination"`
	AnnounceCommand        string   `mapstructure:"announce_command"`
	AnnounceTimeout        Duration `mapstructure:"announce_timeout"`
}

// Load reads configuration from the given file (optional) plus ALARMD_*
// environment variables, applying defaults for anything unset.
func Load(path string) (*Settings, error) {
	v := viper.New()

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "alarmd.db")
	v.SetDefault("http.listen", ":8080")
	v.SetDefault("scheduler.tick_interval", "30s")
	v.SetDefault("scheduler.seed_defaults", true)
	v.SetDefault("actions.announce_timeout", "30s")

	v.SetEnvPrefix("ALARMD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings, viper.DecodeHook(DurationDecodeHook())); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := settings.validate(); err != nil {
		return nil, err
	}
	return &settings, nil
}

func (s *Settings) validate() error {
	switch s.Database.Driver {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("unsupported database driver %q", s.Database.Driver)
	}
	if s.Database.DSN == "" {
		return fmt.Errorf("database dsn must be set")
	}
	if s.Scheduler.TickInterval.Std() < time.Second {
		return fmt.Errorf("scheduler tick_interval must be at least 1s")
	}
	return nil
}
