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

package orchestrator

import (
	"encoding/json"
	"sort"

	"trip-agent/internal/tool/builtin"
)

// AssembleDefaults 预算合成兜底参数（缺省时取 builtin 常量）
type AssembleDefaults struct {
	NightlyBudget     float64
	FoodPerDay        float64
	IncidentalsPerDay float64
	Currency          string
}

// Assemble 把累积的工具输出确定性地装配为 TripPlan。
// 必须有带非空 segments 的路线输出，否则返回 nil（尚无可装配计划，不是错误）。
// 其余工具按天号索引，同天后写覆盖先写；缺失的辅助数据留空。
func Assemble(plan Plan, defaults AssembleDefaults) *TripPlan {
	route := lastRoute(plan)
	if route == nil {
		return nil
	}
	segments, _ := asList(route["segments"])

	byDay := map[int]*DayPlan{}
	for _, seg := range segments {
		m, ok := asMap(seg)
		if !ok {
			continue
		}
		day, ok := intField(m, "day")
		if !ok {
			continue
		}
		dp := &DayPlan{
			Day:        day,
			DistanceKm: floatField(m, "distance_km"),
		}
		dp.Start, _ = m["start"].(string)
		dp.End, _ = m["end"].(string)
		dp.Notes, _ = m["notes"].(string)
		byDay[day] = dp
	}
	if len(byDay) == 0 {
		return nil
	}

	for _, entry := range plan.Entries("find_accommodation") {
		m, ok := asMap(entry)
		if !ok {
			continue
		}
		if day, ok := intField(m, "day"); ok {
			if dp := byDay[day]; dp != nil {
				dp.Accommodation = m["options"]
			}
		}
	}

	// 天气与海拔的输出内嵌逐日列表，摊平后再按天归位
	for _, entry := range plan.Entries("get_weather") {
		m, ok := asMap(entry)
		if !ok {
			continue
		}
		daily, _ := asList(m["daily"])
		for _, item := range daily {
			dm, ok := asMap(item)
			if !ok {
				continue
			}
			if day, ok := intField(dm, "day"); ok {
				if dp := byDay[day]; dp != nil {
					dp.Weather = dm
				}
			}
		}
	}

	for _, entry := range plan.Entries("get_elevation_profile") {
		m, ok := asMap(entry)
		if !ok {
			continue
		}
		profile, _ := asList(m["profile"])
		for _, item := range profile {
			pm, ok := asMap(item)
			if !ok {
				continue
			}
			if day, ok := intField(pm, "day"); ok {
				if dp := byDay[day]; dp != nil {
					dp.Elevation = pm
				}
			}
		}
	}

	for _, entry := range plan.Entries("get_points_of_interest") {
		m, ok := asMap(entry)
		if !ok {
			continue
		}
		if day, ok := intField(m, "day"); ok {
			if dp := byDay[day]; dp != nil {
				dp.PointsOfInterest = m["pois"]
			}
		}
	}

	// 签证是行程级信息，回填到每一天
	if visa := lastEntry(plan, "check_visa_requirements"); visa != nil {
		for _, dp := range byDay {
			dp.Visa = visa
		}
	}

	itinerary := make([]DayPlan, 0, len(byDay))
	for _, dp := range byDay {
		itinerary = append(itinerary, *dp)
	}
	sort.Slice(itinerary, func(i, j int) bool { return itinerary[i].Day < itinerary[j].Day })

	trip := &TripPlan{
		TotalDistanceKm: floatField(route, "total_distance_km"),
		Itinerary:       itinerary,
	}
	if days, ok := intField(route, "days"); ok {
		trip.Days = days
	} else {
		trip.Days = len(itinerary)
	}

	if budget := lastEntry(plan, "estimate_budget"); budget != nil {
		trip.Budget = budget
	} else {
		trip.Budget = synthesizeBudget(trip, defaults)
	}
	return trip
}

// lastRoute 取最后一个带非空 segments 的路线输出
func lastRoute(plan Plan) map[string]any {
	entries := plan.Entries("get_route")
	for i := len(entries) - 1; i >= 0; i-- {
		m, ok := asMap(entries[i])
		if !ok {
			continue
		}
		if segs, ok := asList(m["segments"]); ok && len(segs) > 0 {
			return m
		}
	}
	return nil
}

// lastEntry 取该工具最后一次 map 形输出
func lastEntry(plan Plan, name string) map[string]any {
	entries := plan.Entries(name)
	for i := len(entries) - 1; i >= 0; i-- {
		if m, ok := asMap(entries[i]); ok {
			return m
		}
	}
	return nil
}

// synthesizeBudget 用每日住宿均价合成行程预算；任何环节失败都放弃并返回 nil
func synthesizeBudget(trip *TripPlan, defaults AssembleDefaults) any {
	if len(trip.Itinerary) == 0 {
		return nil
	}
	nightly := defaults.NightlyBudget
	if nightly <= 0 {
		nightly = builtin.DefaultNightlyBudget
	}
	food := defaults.FoodPerDay
	if food <= 0 {
		food = builtin.DefaultFoodPerDay
	}
	incidentals := defaults.IncidentalsPerDay
	if incidentals <= 0 {
		incidentals = builtin.DefaultIncidentalsPerDay
	}

	lodging := make([]float64, 0, len(trip.Itinerary))
	for _, dp := range trip.Itinerary {
		avg := averageLodging(dp.Accommodation)
		if avg <= 0 {
			avg = nightly
		}
		lodging = append(lodging, avg)
	}

	resp := builtin.Estimate(builtin.BudgetInput{
		Days:              len(trip.Itinerary),
		NightlyBudget:     nightly,
		FoodPerDay:        food,
		IncidentalsPerDay: incidentals,
		Travelers:         1,
		Currency:          builtin.NormalizeCurrency(defaults.Currency),
	}, lodging)
	return normalizeJSON(resp)
}

// averageLodging 住宿选项列表 → 可用选项均价；解析失败返回 0
func averageLodging(options any) float64 {
	raw, err := json.Marshal(options)
	if err != nil {
		return 0
	}
	var opts []builtin.AccommodationOption
	if err := json.Unmarshal(raw, &opts); err != nil {
		return 0
	}
	return builtin.AverageLodgingCost(opts)
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func asList(v any) ([]any, bool) {
	l, ok := v.([]any)
	return l, ok
}

// intField JSON 规整后的数字是 float64，这里折回 int
func intField(m map[string]any, key string) (int, bool) {
	switch n := m[key].(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}

func floatField(m map[string]any, key string) float64 {
	switch n := m[key].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return 0
}
