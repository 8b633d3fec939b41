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
	"time"

	"trip-agent/internal/tool/registry"
	"trip-agent/pkg/log"
)

// Options 内置工具装配选项
type Options struct {
	LiveData           bool          // true 时路线/天气尝试公共 API，失败回退 mock
	GeocodingURL       string        // 空则默认 Open-Meteo geocoding
	ForecastURL        string        // 空则默认 Open-Meteo forecast
	RequestTimeout     time.Duration // 单次外呼超时
	DefaultCurrency    string        // 预算工具默认币种
	DefaultNationality string        // 签证工具默认国籍
}

// RegisterBuiltin 注册全部行程数据工具
func RegisterBuiltin(r *registry.Registry, opts Options, logger *log.Logger) {
	var geocoder *Geocoder
	if opts.LiveData {
		geocoder = NewGeocoder(opts.GeocodingURL, opts.RequestTimeout, logger)
	}
	r.Register(NewRouteTool(geocoder))
	r.Register(NewAccommodationTool())
	r.Register(NewWeatherTool(geocoder, opts.ForecastURL, opts.RequestTimeout))
	r.Register(NewElevationTool())
	r.Register(NewPOITool())
	r.Register(NewVisaTool(opts.DefaultNationality))
	r.Register(NewBudgetTool(opts.DefaultCurrency))
}
