package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// WeatherTool reports current conditions for a city from OpenWeatherMap.
type WeatherTool struct {
	BaseTool
	apiKey  string
	baseURL string
	client  *http.Client
	now     func() time.Time
}

// NewWeatherTool creates the get_weather tool.
func NewWeatherTool(apiKey, baseURL string, client *http.Client) *WeatherTool {
	if client == nil {
		client = NewHTTPClient(DefaultTimeout)
	}
	return &WeatherTool{
		BaseTool: BaseTool{
			ToolName:        "get_weather",
			ToolDescription: "Get current weather for any city worldwide",
			ToolSchema:      stringSchema("city", "City name (e.g., New York, London, Tokyo)"),
		},
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  client,
		now:     time.Now,
	}
}

type weatherResponse struct {
	Name string `json:"name"`
	Sys  struct {
		Country string `json:"country"`
	} `json:"sys"`
	Main *struct {
		Temp      *float64    `json:"temp"`
		FeelsLike json.Number `json:"feels_like"`
		Humidity  json.Number `json:"humidity"`
		Pressure  json.Number `json:"pressure"`
	} `json:"main"`
	Weather []weatherCondition `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Visibility float64 `json:"visibility"`
}

type weatherCondition struct {
	Description string `json:"description"`
}

func (t *WeatherTool) Execute(ctx context.Context, args map[string]any) (Payload, error) {
	city := stringArg(args, "city")

	u, err := url.Parse(t.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid weather base URL: %w", err)
	}
	q := u.Query()
	q.Set("q", city)
	q.Set("appid", t.apiKey)
	q.Set("units", "metric")
	u.RawQuery = q.Encode()

	var data weatherResponse
	if err := getJSON(ctx, t.client, "openweathermap", u.String(), nil, true, &data); err != nil {
		return nil, err
	}
	if data.Main == nil || data.Main.Temp == nil {
		return nil, errors.New("openweathermap: response missing main.temp")
	}
	for field, v := range map[string]json.Number{
		"feels_like": data.Main.FeelsLike,
		"humidity":   data.Main.Humidity,
		"pressure":   data.Main.Pressure,
	} {
		if v == "" {
			return nil, fmt.Errorf("openweathermap: response missing main.%s", field)
		}
	}

	return Payload{
		"city":        fallback(data.Name, city),
		"country":     fallback(data.Sys.Country, "Unknown"),
		"temperature": formatTemperature(*data.Main.Temp),
		"condition":   formatCondition(data.Weather),
		"humidity":    fmt.Sprintf("%s%%", data.Main.Humidity),
		"wind_speed":  formatWindSpeed(data.Wind.Speed),
		"feels_like":  fmt.Sprintf("%s°C", data.Main.FeelsLike),
		"pressure":    fmt.Sprintf("%s hPa", data.Main.Pressure),
		"visibility":  formatVisibility(data.Visibility),
		"timestamp":   timestamp(t.now()),
	}, nil
}

// formatTemperature renders Celsius alongside Fahrenheit, e.g. "20.0°C / 68.0°F".
func formatTemperature(celsius float64) string {
	return fmt.Sprintf("%.1f°C / %.1f°F", celsius, celsius*9/5+32)
}

// formatWindSpeed converts m/s to km/h.
func formatWindSpeed(metersPerSecond float64) string {
	return fmt.Sprintf("%.1f km/h", metersPerSecond*3.6)
}

// formatVisibility converts meters to kilometers; zero means not reported.
func formatVisibility(meters float64) string {
	if meters == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.1f km", meters/1000)
}

func formatCondition(weather []weatherCondition) string {
	if len(weather) == 0 || weather[0].Description == "" {
		return "Unknown"
	}
	return cases.Title(language.English).String(weather[0].Description)
}

func fallback(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
