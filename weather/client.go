// Package weather fetches Open-Meteo forecasts and converts them into a
// farming-impact signal. The provider is free and needs no API key; every
// call is context-bounded and provider failures surface as
// ErrDataUnavailable so callers can degrade instead of aborting.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ErrDataUnavailable is returned when the provider is unreachable, times
// out, or returns a malformed body.
var ErrDataUnavailable = errors.New("weather: data unavailable")

// DefaultBaseURL is the Open-Meteo forecast API.
const DefaultBaseURL = "https://api.open-meteo.com/v1"

// SourceID identifies the provider in decision data-source lists.
const SourceID = "open-meteo"

// Condition buckets WMO weather codes into farming-relevant categories.
type Condition string

const (
	ConditionClear        Condition = "clear"
	ConditionPartlyCloudy Condition = "partly_cloudy"
	ConditionCloudy       Condition = "cloudy"
	ConditionRainy        Condition = "rainy"
	ConditionStormy       Condition = "stormy"
	ConditionFoggy        Condition = "foggy"
)

// Current holds present conditions at the location.
type Current struct {
	Temperature   float64   `json:"temperature"`
	Humidity      float64   `json:"humidity"`
	Precipitation float64   `json:"precipitation"`
	WindSpeed     float64   `json:"wind_speed"`
	CloudCover    float64   `json:"cloud_cover"`
	Condition     Condition `json:"condition"`
}

// DailyForecast is one day of the forecast horizon.
type DailyForecast struct {
	Date            time.Time `json:"date"`
	TempMax         float64   `json:"temp_max"`
	TempMin         float64   `json:"temp_min"`
	PrecipitationMM float64   `json:"precipitation"`
	RainProbability float64   `json:"rain_probability"` // percent
	WindSpeedMax    float64   `json:"wind_speed_max"`
	Condition       Condition `json:"condition"`
}

// Snapshot is a point-in-time weather observation plus forecast. It is
// fetched fresh per evaluation and only cached for offline degradation.
type Snapshot struct {
	Latitude  float64         `json:"latitude"`
	Longitude float64         `json:"longitude"`
	Current   Current         `json:"current"`
	Forecast  []DailyForecast `json:"forecast"`
	Timezone  string          `json:"timezone"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Client fetches forecasts from Open-Meteo.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client with the given request timeout. An empty
// baseURL uses the public Open-Meteo endpoint.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// openMeteoResponse mirrors the fields we request from the provider.
type openMeteoResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`
	Current   struct {
		Temperature   float64 `json:"temperature_2m"`
		Humidity      float64 `json:"relative_humidity_2m"`
		Precipitation float64 `json:"precipitation"`
		WeatherCode   int     `json:"weather_code"`
		CloudCover    float64 `json:"cloud_cover"`
		WindSpeed     float64 `json:"wind_speed_10m"`
	} `json:"current"`
	Daily struct {
		Time            []string  `json:"time"`
		WeatherCode     []int     `json:"weather_code"`
		TempMax         []float64 `json:"temperature_2m_max"`
		TempMin         []float64 `json:"temperature_2m_min"`
		Precipitation   []float64 `json:"precipitation_sum"`
		RainProbability []float64 `json:"precipitation_probability_max"`
		WindSpeedMax    []float64 `json:"wind_speed_10m_max"`
	} `json:"daily"`
}

// Fetch retrieves current weather and a 7-day forecast for a location.
func (c *Client) Fetch(ctx context.Context, lat, lon float64) (*Snapshot, error) {
	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.4f", lat))
	q.Set("longitude", fmt.Sprintf("%.4f", lon))
	q.Set("current", "temperature_2m,relative_humidity_2m,precipitation,weather_code,cloud_cover,wind_speed_10m")
	q.Set("daily", "weather_code,temperature_2m_max,temperature_2m_min,precipitation_sum,precipitation_probability_max,wind_speed_10m_max")
	q.Set("timezone", "auto")
	q.Set("forecast_days", "7")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/forecast?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: provider returned status %d", ErrDataUnavailable, resp.StatusCode)
	}

	var body openMeteoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: malformed provider response: %v", ErrDataUnavailable, err)
	}
	if len(body.Daily.Time) == 0 {
		return nil, fmt.Errorf("%w: provider response missing forecast", ErrDataUnavailable)
	}

	snap := &Snapshot{
		Latitude:  body.Latitude,
		Longitude: body.Longitude,
		Timezone:  body.Timezone,
		FetchedAt: time.Now(),
		Current: Current{
			Temperature:   body.Current.Temperature,
			Humidity:      body.Current.Humidity,
			Precipitation: body.Current.Precipitation,
			WindSpeed:     body.Current.WindSpeed,
			CloudCover:    body.Current.CloudCover,
			Condition:     conditionFromWMO(body.Current.WeatherCode),
		},
	}

	for i, dateStr := range body.Daily.Time {
		day, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			return nil, fmt.Errorf("%w: bad forecast date %q: %v", ErrDataUnavailable, dateStr, err)
		}
		f := DailyForecast{Date: day}
		if i < len(body.Daily.TempMax) {
			f.TempMax = body.Daily.TempMax[i]
		}
		if i < len(body.Daily.TempMin) {
			f.TempMin = body.Daily.TempMin[i]
		}
		if i < len(body.Daily.Precipitation) {
			f.PrecipitationMM = body.Daily.Precipitation[i]
		}
		if i < len(body.Daily.RainProbability) {
			f.RainProbability = body.Daily.RainProbability[i]
		}
		if i < len(body.Daily.WindSpeedMax) {
			f.WindSpeedMax = body.Daily.WindSpeedMax[i]
		}
		if i < len(body.Daily.WeatherCode) {
			f.Condition = conditionFromWMO(body.Daily.WeatherCode[i])
		}
		snap.Forecast = append(snap.Forecast, f)
	}

	return snap, nil
}

// conditionFromWMO buckets a WMO weather code. Snow counts as rainy for
// farming purposes.
func conditionFromWMO(code int) Condition {
	switch {
	case code == 0:
		return ConditionClear
	case code == 1 || code == 2:
		return ConditionPartlyCloudy
	case code == 3:
		return ConditionCloudy
	case code == 45 || code == 48:
		return ConditionFoggy
	case (code >= 51 && code <= 67) || (code >= 71 && code <= 77) ||
		(code >= 80 && code <= 86):
		return ConditionRainy
	case code == 95 || code == 96 || code == 99:
		return ConditionStormy
	default:
		return ConditionCloudy
	}
}

// ForecastAverages returns the mean daily max/min over the forecast
// horizon, for GDD estimation. ok is false when there is no forecast.
func (s *Snapshot) ForecastAverages() (avgMax, avgMin float64, ok bool) {
	if len(s.Forecast) == 0 {
		return 0, 0, false
	}
	for _, f := range s.Forecast {
		avgMax += f.TempMax
		avgMin += f.TempMin
	}
	n := float64(len(s.Forecast))
	return avgMax / n, avgMin / n, true
}
