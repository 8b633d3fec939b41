// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package builtin

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"trip-agent/internal/tool"
)

const defaultForecastURL = "https://api.open-meteo.com/v1/forecast"

// WeatherDaily 单日天气
type WeatherDaily struct {
	Day                 int     `json:"day"`
	Location            string  `json:"location"`
	Conditions          string  `json:"conditions"`
	HighC               float64 `json:"high_c"`
	LowC                float64 `json:"low_c"`
	PrecipitationChance float64 `json:"precipitation_chance"`
}

// WeatherResponse 天气工具输出
type WeatherResponse struct {
	Daily []WeatherDaily `json:"daily"`
}

// WeatherTool get_weather：按地点/天返回天气。geocoder 为 nil 时纯 mock。
type WeatherTool struct {
	geocoder *Geocoder
	client   *resty.Client
	baseURL  string
}

// NewWeatherTool 创建天气工具；geocoder 为 nil 时只返回 mock 数据
func NewWeatherTool(geocoder *Geocoder, forecastURL string, timeout time.Duration) *WeatherTool {
	if forecastURL == "" {
		forecastURL = defaultForecastURL
	}
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	client := resty.New()
	client.SetTimeout(timeout)
	return &WeatherTool{geocoder: geocoder, client: client, baseURL: forecastURL}
}

// Name 实现 tool.Tool
func (t *WeatherTool) Name() string { return "get_weather" }

// Description 实现 tool.Tool
func (t *WeatherTool) Description() string {
	return "Get the weather forecast for a location on a given trip day. Best effort: falls back to a typical-conditions estimate when live data is unavailable."
}

// Schema 实现 tool.Tool
func (t *WeatherTool) Schema() tool.Schema {
	return tool.Schema{
		Type: "object",
		Properties: map[string]tool.SchemaProperty{
			"location": {Type: "string", Description: "Location to forecast"},
			"day":      {Type: "integer", Description: "Trip day the forecast applies to"},
		},
		Required: []string{"location", "day"},
	}
}

// Execute 实现 tool.Tool
func (t *WeatherTool) Execute(ctx context.Context, input map[string]any) (any, error) {
	location := inputString(input, "location")
	day := inputInt(input, "day")
	if location == "" {
		return nil, fmt.Errorf("location 不能为空")
	}

	if t.geocoder != nil {
		if daily := t.liveForecast(ctx, location, day); daily != nil {
			return &WeatherResponse{Daily: []WeatherDaily{*daily}}, nil
		}
	}
	return &WeatherResponse{Daily: []WeatherDaily{mockWeather(location, day)}}, nil
}

// liveForecast Open-Meteo 按 trip day 偏移取未来某日的预报；任一步失败返回 nil
func (t *WeatherTool) liveForecast(ctx context.Context, location string, day int) *WeatherDaily {
	geo := t.geocoder.Lookup(ctx, location)
	if geo == nil {
		return nil
	}
	var data struct {
		Daily struct {
			TempMax       []float64 `json:"temperature_2m_max"`
			TempMin       []float64 `json:"temperature_2m_min"`
			PrecipProbMax []float64 `json:"precipitation_probability_max"`
		} `json:"daily"`
	}
	resp, err := t.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"latitude":      fmt.Sprintf("%.4f", geo.Lat),
			"longitude":     fmt.Sprintf("%.4f", geo.Lon),
			"daily":         "temperature_2m_max,temperature_2m_min,precipitation_probability_max",
			"forecast_days": "14",
			"timezone":      "auto",
		}).
		SetResult(&data).
		Get(t.baseURL)
	if err != nil || resp.StatusCode() != http.StatusOK {
		return nil
	}
	idx := day - 1
	if idx < 0 || idx >= len(data.Daily.TempMax) || idx >= len(data.Daily.TempMin) {
		return nil
	}
	chance := 0.0
	if idx < len(data.Daily.PrecipProbMax) {
		chance = data.Daily.PrecipProbMax[idx] / 100
	}
	return &WeatherDaily{
		Day:                 day,
		Location:            geo.Name,
		Conditions:          describeConditions(data.Daily.TempMax[idx], chance),
		HighC:               data.Daily.TempMax[idx],
		LowC:                data.Daily.TempMin[idx],
		PrecipitationChance: math.Round(chance*100) / 100,
	}
}

// describeConditions 把数值预报压缩成一句话
func describeConditions(highC, precipChance float64) string {
	switch {
	case precipChance >= 0.6:
		return "likely rain, pack waterproofs"
	case precipChance >= 0.3:
		return "chance of showers"
	case highC >= 28:
		return "hot and mostly sunny"
	case highC <= 8:
		return "cold, dress in layers"
	default:
		return "mild with light winds"
	}
}

// mockWeather 确定性兜底天气
func mockWeather(location string, day int) WeatherDaily {
	return WeatherDaily{
		Day:                 day,
		Location:            location,
		Conditions:          "sunny with light winds",
		HighC:               24.0,
		LowC:                15.0,
		PrecipitationChance: 0.1,
	}
}
