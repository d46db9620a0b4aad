// Package conf loads and validates wxpost settings through viper.
package conf

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/avikko/wxpost/internal/errors"
)

// Settings mirrors the YAML configuration file.
type Settings struct {
	Debug bool `mapstructure:"debug"`

	Main struct {
		Name string `mapstructure:"name"` // station name rendered into {station}
		Log  struct {
			Path string `mapstructure:"path"`
		} `mapstructure:"log"`
	} `mapstructure:"main"`

	Station StationSettings  `mapstructure:"station"`
	Weather WeatherSettings  `mapstructure:"weather"`
	Trend   TrendSettings    `mapstructure:"trend"`
	Post    PostSettings     `mapstructure:"post"`
	Publish PublishSettings  `mapstructure:"publish"`
	Twitter TwitterSettings  `mapstructure:"twitter"`
	Sched   ScheduleSettings `mapstructure:"schedule"`

	Datastore struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"datastore"`
}

// StationSettings locates the observing site.
type StationSettings struct {
	Latitude  float64 `mapstructure:"latitude"`
	Longitude float64 `mapstructure:"longitude"`
}

// WeatherSettings configures the upstream sources and the cache in front of them.
type WeatherSettings struct {
	// Sources is the priority-ordered list of enabled providers. The first source
	// supplying a field wins the merge.
	Sources []string `mapstructure:"sources"`
	// SnowSource names the provider whose snow rate/total override the merge order.
	SnowSource string `mapstructure:"snowsource"`

	CacheTTLMinutes int `mapstructure:"cachettlminutes"`

	OpenWeather struct {
		APIKey   string `mapstructure:"apikey"`
		Endpoint string `mapstructure:"endpoint"`
	} `mapstructure:"openweather"`

	Wunderground struct {
		APIKey    string `mapstructure:"apikey"`
		StationID string `mapstructure:"stationid"`
		Endpoint  string `mapstructure:"endpoint"`
	} `mapstructure:"wunderground"`

	YrNo struct {
		Endpoint string `mapstructure:"endpoint"`
	} `mapstructure:"yrno"`
}

// TrendSettings tune the pressure trend classifier.
type TrendSettings struct {
	WindowHours  int     `mapstructure:"windowhours"`
	ThresholdHPa float64 `mapstructure:"thresholdhpa"`
}

// PostSettings shape the rendered text.
type PostSettings struct {
	Template      string   `mapstructure:"template"`
	FallbackToken string   `mapstructure:"fallbacktoken"`
	Media         []string `mapstructure:"media"` // local paths and/or http(s) URLs
}

// PublishSettings tune the retry/backoff loop around the posting client.
type PublishSettings struct {
	MaxAttempts        int     `mapstructure:"maxattempts"`
	BackoffBaseSeconds int     `mapstructure:"backoffbaseseconds"`
	BackoffMaxSeconds  int     `mapstructure:"backoffmaxseconds"`
	RatePerMinute      float64 `mapstructure:"rateperminute"`
}

// TwitterSettings configure the posting endpoint. The access token is expected to be
// pre-authorized; wxpost does not run an OAuth flow.
type TwitterSettings struct {
	AccessToken string `mapstructure:"accesstoken"`
	UploadURL   string `mapstructure:"uploadurl"`
	PostURL     string `mapstructure:"posturl"`
}

// ScheduleSettings define when the pipeline fires.
type ScheduleSettings struct {
	FirePoints          []string `mapstructure:"firepoints"` // "HH:MM" local times
	Timezone            string   `mapstructure:"timezone"`
	TickIntervalSeconds int      `mapstructure:"tickintervalseconds"`
}

// Load reads the configuration file (if present) and unmarshals it over the defaults.
func Load(configPath string) (*Settings, error) {
	setDefaultConfig()

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("wxpost")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.config/wxpost")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.New(err).
				Component("conf").
				Category(errors.CategoryConfiguration).
				Context("config_file", viper.ConfigFileUsed()).
				Build()
		}
		// No config file is fine, defaults plus flags still form a usable preview setup.
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal_settings").
			Build()
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	return settings, nil
}

// Validate checks the settings for values the pipeline cannot work with.
func (s *Settings) Validate() error {
	if len(s.Weather.Sources) == 0 {
		return errors.Newf("no weather sources enabled").
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	for _, src := range s.Weather.Sources {
		switch src {
		case "yrno", "openweather", "wunderground":
		default:
			return errors.Newf("unknown weather source: %s", src).
				Component("conf").
				Category(errors.CategoryConfiguration).
				Context("source", src).
				Build()
		}
	}
	if s.Weather.CacheTTLMinutes < 1 {
		return errors.Newf("weather cache ttl must be at least 1 minute, got %d", s.Weather.CacheTTLMinutes).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if s.Trend.ThresholdHPa <= 0 {
		return errors.Newf("trend threshold must be positive, got %g", s.Trend.ThresholdHPa).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if s.Publish.MaxAttempts < 1 {
		return errors.Newf("publish max attempts must be at least 1, got %d", s.Publish.MaxAttempts).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if _, err := time.LoadLocation(s.Sched.Timezone); err != nil {
		return errors.New(fmt.Errorf("invalid schedule timezone %q: %w", s.Sched.Timezone, err)).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	for _, fp := range s.Sched.FirePoints {
		if _, err := time.Parse("15:04", fp); err != nil {
			return errors.New(fmt.Errorf("invalid fire point %q: %w", fp, err)).
				Component("conf").
				Category(errors.CategoryConfiguration).
				Build()
		}
	}
	return nil
}

// CacheTTL returns the observation cache TTL as a duration.
func (s *Settings) CacheTTL() time.Duration {
	return time.Duration(s.Weather.CacheTTLMinutes) * time.Minute
}

// TrendWindow returns the trailing trend window as a duration.
func (s *Settings) TrendWindow() time.Duration {
	return time.Duration(s.Trend.WindowHours) * time.Hour
}

// Timezone returns the configured schedule location. Validate guarantees it loads.
func (s *Settings) Timezone() *time.Location {
	loc, err := time.LoadLocation(s.Sched.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
