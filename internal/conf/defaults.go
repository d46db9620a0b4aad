// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "wxpost")
	viper.SetDefault("main.log.path", "logs/wxpost.log")

	viper.SetDefault("station.latitude", 0.000)
	viper.SetDefault("station.longitude", 0.000)

	viper.SetDefault("weather.sources", []string{"wunderground", "yrno", "openweather"})
	viper.SetDefault("weather.snowsource", "openweather")
	viper.SetDefault("weather.cachettlminutes", 10)
	viper.SetDefault("weather.openweather.endpoint", "https://api.openweathermap.org/data/2.5/weather")
	viper.SetDefault("weather.wunderground.endpoint", "https://api.weather.com/v2/pws/observations/current")
	viper.SetDefault("weather.yrno.endpoint", "https://api.met.no/weatherapi/locationforecast/2.0/complete")

	viper.SetDefault("trend.windowhours", 3)
	viper.SetDefault("trend.thresholdhpa", 1.0)

	viper.SetDefault("datastore.path", "wxpost.db")

	viper.SetDefault("post.template",
		"{station}: {temperature:%.1f}°C ({sky}) | wind {wind} {windDir:ord} {windSpeed:%.1f} m/s | "+
			"{humidity:%.0f}% RH | {pressure:%.1f} hPa {pressureTrend} | UV {uv} | {moon}")
	viper.SetDefault("post.fallbacktoken", "n/a")
	viper.SetDefault("post.media", []string{})

	viper.SetDefault("publish.maxattempts", 4)
	viper.SetDefault("publish.backoffbaseseconds", 5)
	viper.SetDefault("publish.backoffmaxseconds", 120)
	viper.SetDefault("publish.rateperminute", 6)

	viper.SetDefault("twitter.uploadurl", "https://upload.twitter.com/1.1/media/upload.json")
	viper.SetDefault("twitter.posturl", "https://api.twitter.com/2/tweets")

	viper.SetDefault("schedule.firepoints", []string{"08:00", "18:00"})
	viper.SetDefault("schedule.timezone", "UTC")
	viper.SetDefault("schedule.tickintervalseconds", 30)
}
