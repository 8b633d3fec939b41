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
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"trip-agent/pkg/log"
)

const defaultGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"

// GeoResult 地名解析结果
type GeoResult struct {
	Name     string  `json:"name"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Country  string  `json:"country,omitempty"`
	Timezone string  `json:"timezone,omitempty"`
}

// Geocoder 免费 Open-Meteo geocoding API 客户端。
// Lookup 任何失败都返回 nil，调用方据此回退 mock 数据。
type Geocoder struct {
	client  *resty.Client
	baseURL string
	logger  *log.Logger
}

// NewGeocoder 创建 Geocoder，baseURL 为空时用默认端点
func NewGeocoder(baseURL string, timeout time.Duration, logger *log.Logger) *Geocoder {
	if baseURL == "" {
		baseURL = defaultGeocodingURL
	}
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	client := resty.New()
	client.SetTimeout(timeout)
	return &Geocoder{client: client, baseURL: baseURL, logger: logger}
}

// Lookup 将地名解析为坐标；任何失败返回 nil
func (g *Geocoder) Lookup(ctx context.Context, query string) *GeoResult {
	if g == nil || query == "" {
		return nil
	}
	var data struct {
		Results []struct {
			Name      string  `json:"name"`
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
			Country   string  `json:"country"`
			Timezone  string  `json:"timezone"`
		} `json:"results"`
	}
	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"name":     query,
			"count":    "1",
			"language": "en",
			"format":   "json",
		}).
		SetResult(&data).
		Get(g.baseURL)
	if err != nil || resp.StatusCode() != http.StatusOK || len(data.Results) == 0 {
		if g.logger != nil {
			g.logger.Warn("geocoding 失败", "query", query, "error", err)
		}
		return nil
	}
	best := data.Results[0]
	name := best.Name
	if name == "" {
		name = query
	}
	return &GeoResult{
		Name:     name,
		Lat:      best.Latitude,
		Lon:      best.Longitude,
		Country:  best.Country,
		Timezone: best.Timezone,
	}
}
