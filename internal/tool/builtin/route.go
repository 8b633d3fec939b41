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

	"trip-agent/internal/tool"
)

// roadFactor 直线距离换算到骑行道路距离的经验系数
const roadFactor = 1.25

// RouteSegment 路线中的单日分段
type RouteSegment struct {
	Day        int     `json:"day"`
	DistanceKm float64 `json:"distance_km"`
	Start      string  `json:"start"`
	End        string  `json:"end"`
	Notes      string  `json:"notes,omitempty"`
}

// RouteResponse 路线工具输出
type RouteResponse struct {
	TotalDistanceKm float64        `json:"total_distance_km"`
	Days            int            `json:"days"`
	Segments        []RouteSegment `json:"segments"`
}

// RouteTool get_route：按日切分骑行路线。geocoder 可为 nil（纯 mock）。
type RouteTool struct {
	geocoder *Geocoder
}

// NewRouteTool 创建路线工具
func NewRouteTool(geocoder *Geocoder) *RouteTool {
	return &RouteTool{geocoder: geocoder}
}

// Name 实现 tool.Tool
func (t *RouteTool) Name() string { return "get_route" }

// Description 实现 tool.Tool
func (t *RouteTool) Description() string {
	return "Compute a cycling route between two points, split into daily segments by the rider's daily distance. Requires start, end and daily_distance_km."
}

// Schema 实现 tool.Tool
func (t *RouteTool) Schema() tool.Schema {
	return tool.Schema{
		Type: "object",
		Properties: map[string]tool.SchemaProperty{
			"start":             {Type: "string", Description: "Start location name"},
			"end":               {Type: "string", Description: "End location name"},
			"daily_distance_km": {Type: "integer", Description: "Target distance per day in km"},
		},
		Required: []string{"start", "end", "daily_distance_km"},
	}
}

// Execute 实现 tool.Tool
func (t *RouteTool) Execute(ctx context.Context, input map[string]any) (any, error) {
	start := inputString(input, "start")
	end := inputString(input, "end")
	daily := inputFloat(input, "daily_distance_km")
	if start == "" || end == "" {
		return nil, fmt.Errorf("start 与 end 不能为空")
	}

	if t.geocoder != nil {
		if resp := t.liveRoute(ctx, start, end, daily); resp != nil {
			return resp, nil
		}
	}
	return mockRoute(start, end), nil
}

// liveRoute 通过 geocoding 解析两端坐标后按大圆距离切分；任一步失败返回 nil 回退 mock
func (t *RouteTool) liveRoute(ctx context.Context, start, end string, daily float64) *RouteResponse {
	from := t.geocoder.Lookup(ctx, start)
	to := t.geocoder.Lookup(ctx, end)
	if from == nil || to == nil || daily <= 0 {
		return nil
	}
	total := haversineKm(from.Lat, from.Lon, to.Lat, to.Lon) * roadFactor
	total = math.Round(total*10) / 10
	days := int(math.Ceil(total / daily))
	if days < 1 {
		days = 1
	}
	perDay := math.Round(total/float64(days)*10) / 10

	segments := make([]RouteSegment, 0, days)
	for day := 1; day <= days; day++ {
		segStart := fmt.Sprintf("Waypoint %d", day-1)
		segEnd := fmt.Sprintf("Waypoint %d", day)
		if day == 1 {
			segStart = from.Name
		}
		if day == days {
			segEnd = to.Name
		}
		seg := RouteSegment{Day: day, DistanceKm: perDay, Start: segStart, End: segEnd}
		if day == 1 {
			seg.Notes = fmt.Sprintf("Leaving %s; distances are straight-line estimates scaled for roads.", from.Name)
		}
		segments = append(segments, seg)
	}
	return &RouteResponse{TotalDistanceKm: total, Days: days, Segments: segments}
}

// mockRoute 确定性兜底路线（150km / 3 天）
func mockRoute(start, end string) *RouteResponse {
	return &RouteResponse{
		TotalDistanceKm: 150.0,
		Days:            3,
		Segments: []RouteSegment{
			{Day: 1, DistanceKm: 50.0, Start: start, End: "Midpoint A", Notes: "Scenic route along the river."},
			{Day: 2, DistanceKm: 50.0, Start: "Midpoint A", End: "Midpoint B"},
			{Day: 3, DistanceKm: 50.0, Start: "Midpoint B", End: end, Notes: "Challenging hills towards the end."},
		},
	}
}

// haversineKm 大圆距离（km）
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKm = 6371.0
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
