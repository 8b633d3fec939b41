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

	"trip-agent/internal/tool"
)

// AccommodationOption 单个住宿选项
type AccommodationOption struct {
	Name          string  `json:"name"`
	PricePerNight float64 `json:"price_per_night"`
	Type          string  `json:"type"`
	Available     bool    `json:"available"`
	Notes         string  `json:"notes,omitempty"`
}

// AccommodationResponse 住宿工具输出
type AccommodationResponse struct {
	Day      int                   `json:"day"`
	Location string                `json:"location"`
	Options  []AccommodationOption `json:"options"`
}

// AccommodationTool find_accommodation：按段终点返回可选住宿。
// 价格由地名长度派生，保证可复现；不做预订，不返回真实房态。
type AccommodationTool struct{}

// NewAccommodationTool 创建住宿工具
func NewAccommodationTool() *AccommodationTool { return &AccommodationTool{} }

// Name 实现 tool.Tool
func (t *AccommodationTool) Name() string { return "find_accommodation" }

// Description 实现 tool.Tool
func (t *AccommodationTool) Description() string {
	return "Find plausible lodging options near a segment end point for a given day: hostels, hotels, BnBs along the cycling route. Prices are approximate; no booking links or real room availability."
}

// Schema 实现 tool.Tool
func (t *AccommodationTool) Schema() tool.Schema {
	return tool.Schema{
		Type: "object",
		Properties: map[string]tool.SchemaProperty{
			"location": {Type: "string", Description: "Target area for the overnight stop"},
			"day":      {Type: "integer", Description: "Trip day, may influence availability"},
		},
		Required: []string{"location", "day"},
	}
}

// Execute 实现 tool.Tool
func (t *AccommodationTool) Execute(ctx context.Context, input map[string]any) (any, error) {
	location := inputString(input, "location")
	day := inputInt(input, "day")
	if location == "" {
		return nil, fmt.Errorf("location 不能为空")
	}

	basePrice := float64(50 + len(location)%40)
	options := []AccommodationOption{
		{
			Name:          location + " Hostel",
			PricePerNight: basePrice + 10,
			Type:          "hostel",
			Available:     true,
			Notes:         "Includes bike storage.",
		},
		{
			Name:          location + " BnB",
			PricePerNight: basePrice + 35,
			Type:          "bnb",
			Available:     true,
			Notes:         "Breakfast included.",
		},
		{
			Name:          location + " Budget Inn",
			PricePerNight: basePrice,
			Type:          "motel",
			Available:     day%2 == 0, // 奇数日满房，交替可用
			Notes:         "Basic lodging; limited amenities.",
		},
	}
	return &AccommodationResponse{Day: day, Location: location, Options: options}, nil
}
