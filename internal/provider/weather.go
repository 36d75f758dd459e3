package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/slatehub/slate-core/internal/infrastructure/config"
)

// defaultWeatherBaseURL is the Open-Meteo forecast endpoint. No API key
// required for non-commercial use.
const defaultWeatherBaseURL = "https://api.open-meteo.com/v1/forecast"

// weatherConditions maps WMO weather codes to short display strings.
var weatherConditions = map[int]string{
	0:  "Clear",
	1:  "Mostly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Fog",
	48: "Fog",
	51: "Drizzle",
	53: "Drizzle",
	55: "Drizzle",
	61: "Rain",
	63: "Rain",
	65: "Heavy rain",
	71: "Snow",
	73: "Snow",
	75: "Heavy snow",
	80: "Showers",
	81: "Showers",
	82: "Heavy showers",
	95: "Thunderstorm",
	96: "Thunderstorm",
	99: "Thunderstorm",
}

// weatherFetcher pulls current conditions from Open-Meteo.
type weatherFetcher struct {
	client    *http.Client
	baseURL   string
	latitude  float64
	longitude float64
}

func newWeatherFetcher(cfg config.ProviderConfig) (*weatherFetcher, error) {
	lat, ok := floatOption(cfg.Options, "latitude")
	if !ok {
		return nil, fmt.Errorf("weather provider: latitude option is required")
	}
	lon, ok := floatOption(cfg.Options, "longitude")
	if !ok {
		return nil, fmt.Errorf("weather provider: longitude option is required")
	}

	return &weatherFetcher{
		client:    newHTTPClient(),
		baseURL:   stringOption(cfg.Options, "base_url", defaultWeatherBaseURL),
		latitude:  lat,
		longitude: lon,
	}, nil
}

type openMeteoResponse struct {
	Current struct {
		Temperature float64 `json:"temperature_2m"`
		Humidity    float64 `json:"relative_humidity_2m"`
		WeatherCode int     `json:"weather_code"`
		WindSpeed   float64 `json:"wind_speed_10m"`
	} `json:"current"`
	Daily struct {
		TempMax []float64 `json:"temperature_2m_max"`
		TempMin []float64 `json:"temperature_2m_min"`
	} `json:"daily"`
}

// Fetch retrieves current conditions plus today's min/max.
func (f *weatherFetcher) Fetch(ctx context.Context) (Payload, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(f.latitude, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(f.longitude, 'f', 4, 64))
	q.Set("current", "temperature_2m,relative_humidity_2m,weather_code,wind_speed_10m")
	q.Set("daily", "temperature_2m_max,temperature_2m_min")
	q.Set("forecast_days", "1")
	q.Set("timezone", "auto")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building weather request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching weather: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather API returned status %d", resp.StatusCode)
	}

	var body openMeteoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding weather response: %w", err)
	}

	condition, ok := weatherConditions[body.Current.WeatherCode]
	if !ok {
		condition = "Unknown"
	}

	payload := Payload{
		"temperature_c":  body.Current.Temperature,
		"humidity":       body.Current.Humidity,
		"wind_speed_kmh": body.Current.WindSpeed,
		"weather_code":   body.Current.WeatherCode,
		"condition":      condition,
	}
	if len(body.Daily.TempMax) > 0 {
		payload["temp_max_c"] = body.Daily.TempMax[0]
	}
	if len(body.Daily.TempMin) > 0 {
		payload["temp_min_c"] = body.Daily.TempMin[0]
	}

	return payload, nil
}
