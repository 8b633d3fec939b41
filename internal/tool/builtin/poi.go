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

// PointOfInterest 单个兴趣点
type PointOfInterest struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Relevance   string `json:"relevance"`
}

// POIResponse 兴趣点工具输出
type POIResponse struct {
	Day      int               `json:"day"`
	Location string            `json:"location"`
	POIs     []PointOfInterest `json:"pois"`
}

// POITool get_points_of_interest：按地点/天返回几个值得停留的点位
type POITool struct{}

// NewPOITool 创建兴趣点工具
func NewPOITool() *POITool { return &POITool{} }

// Name 实现 tool.Tool
func (t *POITool) Name() string { return "get_points_of_interest" }

// Description 实现 tool.Tool
func (t *POITool) Description() string {
	return "Get a few relevant points of interest (landmarks, parks, museums, viewpoints, food) for a location on a given trip day."
}

// Schema 实现 tool.Tool
func (t *POITool) Schema() tool.Schema {
	return tool.Schema{
		Type: "object",
		Properties: map[string]tool.SchemaProperty{
			"location": {Type: "string", Description: "Location to look around"},
			"day":      {Type: "integer", Description: "Trip day"},
		},
		Required: []string{"location", "day"},
	}
}

// Execute 实现 tool.Tool
func (t *POITool) Execute(ctx context.Context, input map[string]any) (any, error) {
	location := inputString(input, "location")
	day := inputInt(input, "day")
	if location == "" {
		return nil, fmt.Errorf("location 不能为空")
	}

	categories := []string{"landmark", "park", "museum", "viewpoint", "food"}
	names := []string{
		location + " Old Town",
		location + " Scenic Park",
		location + " Heritage Museum",
	}
	pois := make([]PointOfInterest, 0, len(names))
	for idx, name := range names {
		relevance := "medium"
		if idx == 0 {
			relevance = "high"
		}
		pois = append(pois, PointOfInterest{
			Name:        name,
			Category:    categories[idx%len(categories)],
			Description: fmt.Sprintf("Popular spot in %s for day %d.", location, day),
			Relevance:   relevance,
		})
	}
	return &POIResponse{Day: day, Location: location, POIs: pois}, nil
}
