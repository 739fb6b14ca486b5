package weather

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const forecastFixture = `{
	"latitude": 26.875,
	"longitude": 81.0,
	"timezone": "Asia/Kolkata",
	"current": {
		"temperature_2m": 31.4,
		"relative_humidity_2m": 58,
		"precipitation": 0,
		"weather_code": 2,
		"cloud_cover": 40,
		"wind_speed_10m": 9.7
	},
	"daily": {
		"time": ["2025-07-16", "2025-07-17", "2025-07-18"],
		"weather_code": [61, 0, 95],
		"temperature_2m_max": [33.1, 34.0, 30.2],
		"temperature_2m_min": [25.0, 25.6, 24.1],
		"precipitation_sum": [4.2, 0, 18.5],
		"precipitation_probability_max": [70, 10, 90],
		"wind_speed_10m_max": [14, 11, 26]
	}
}`

func TestClientFetch(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(forecastFixture))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	snap, err := c.Fetch(context.Background(), 26.85, 80.95)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if snap.Timezone != "Asia/Kolkata" {
		t.Errorf("timezone = %q", snap.Timezone)
	}
	if snap.Current.Temperature != 31.4 {
		t.Errorf("temperature = %v, want 31.4", snap.Current.Temperature)
	}
	if snap.Current.Condition != ConditionPartlyCloudy {
		t.Errorf("current condition = %q, want partly_cloudy", snap.Current.Condition)
	}
	if len(snap.Forecast) != 3 {
		t.Fatalf("forecast days = %d, want 3", len(snap.Forecast))
	}
	if snap.Forecast[0].Condition != ConditionRainy {
		t.Errorf("day 0 condition = %q, want rainy (WMO 61)", snap.Forecast[0].Condition)
	}
	if snap.Forecast[2].Condition != ConditionStormy {
		t.Errorf("day 2 condition = %q, want stormy (WMO 95)", snap.Forecast[2].Condition)
	}
	if snap.Forecast[0].RainProbability != 70 {
		t.Errorf("day 0 rain probability = %v, want 70", snap.Forecast[0].RainProbability)
	}
	if snap.FetchedAt.IsZero() {
		t.Error("FetchedAt should be stamped")
	}
	for _, param := range []string{"latitude=26.8500", "longitude=80.9500", "forecast_days=7"} {
		if !containsParam(gotQuery, param) {
			t.Errorf("query %q missing %q", gotQuery, param)
		}
	}
}

func containsParam(query, param string) bool {
	for _, p := range strings.Split(query, "&") {
		if p == param {
			return true
		}
	}
	return false
}

func TestClientFetchFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "provider error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"latitude": not-json`))
			},
		},
		{
			name: "missing forecast",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"latitude": 26.8, "daily": {"time": []}}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := NewClient(srv.URL, time.Second)
			_, err := c.Fetch(context.Background(), 26.85, 80.95)
			if !errors.Is(err, ErrDataUnavailable) {
				t.Errorf("error = %v, want ErrDataUnavailable", err)
			}
		})
	}
}

func TestClientFetchUnreachableProvider(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", 200*time.Millisecond)
	_, err := c.Fetch(context.Background(), 26.85, 80.95)
	if !errors.Is(err, ErrDataUnavailable) {
		t.Errorf("error = %v, want ErrDataUnavailable", err)
	}
}

func TestForecastAverages(t *testing.T) {
	snap := &Snapshot{Forecast: []DailyForecast{
		{TempMax: 30, TempMin: 20},
		{TempMax: 34, TempMin: 24},
	}}
	avgMax, avgMin, ok := snap.ForecastAverages()
	if !ok {
		t.Fatal("expected averages")
	}
	if math.Abs(avgMax-32) > 0.001 || math.Abs(avgMin-22) > 0.001 {
		t.Errorf("averages = %v/%v, want 32/22", avgMax, avgMin)
	}

	empty := &Snapshot{}
	if _, _, ok := empty.ForecastAverages(); ok {
		t.Error("empty forecast should report not ok")
	}
}
