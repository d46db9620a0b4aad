package weather

import "github.com/sony/gobreaker"

const (
	yrNoProviderName         = "yrno"
	openWeatherProviderName  = "openweather"
	wundergroundProviderName = "wunderground"
)

// Provider implementations
type YrNoProvider struct {
	breaker *gobreaker.CircuitBreaker
}

type OpenWeatherProvider struct {
	breaker *gobreaker.CircuitBreaker
}

type WundergroundProvider struct {
	breaker *gobreaker.CircuitBreaker
}

func newYrNoProvider() *YrNoProvider {
	return &YrNoProvider{breaker: newBreaker(yrNoProviderName)}
}

func newOpenWeatherProvider() *OpenWeatherProvider {
	return &OpenWeatherProvider{breaker: newBreaker(openWeatherProviderName)}
}

func newWundergroundProvider() *WundergroundProvider {
	return &WundergroundProvider{breaker: newBreaker(wundergroundProviderName)}
}

func (p *YrNoProvider) Name() string         { return yrNoProviderName }
func (p *OpenWeatherProvider) Name() string  { return openWeatherProviderName }
func (p *WundergroundProvider) Name() string { return wundergroundProviderName }
