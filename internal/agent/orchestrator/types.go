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

// DayPlan 单日行程：字段缺失表示该日无对应辅助数据，不视为错误
type DayPlan struct {
	Day              int     `json:"day"`
	Start            string  `json:"start"`
	End              string  `json:"end"`
	DistanceKm       float64 `json:"distance_km"`
	Accommodation    any     `json:"accommodation,omitempty"`
	Weather          any     `json:"weather,omitempty"`
	Elevation        any     `json:"elevation,omitempty"`
	PointsOfInterest any     `json:"points_of_interest,omitempty"`
	Visa             any     `json:"visa,omitempty"`
	Notes            string  `json:"notes,omitempty"`
}

// TripPlan 规整后的日程：Itinerary 按 day 升序
type TripPlan struct {
	TotalDistanceKm float64   `json:"total_distance_km"`
	Days            int       `json:"days"`
	Itinerary       []DayPlan `json:"itinerary"`
	Budget          any       `json:"budget,omitempty"`
}

// NoteOverride 单日备注覆写
type NoteOverride struct {
	Day   int    `json:"day"`
	Notes string `json:"notes"`
}

// Adjustments finalize 阶段模型给出的小幅修正，只作用于已装配的 TripPlan
type Adjustments struct {
	TargetDays    *int           `json:"target_days,omitempty"`
	NoteOverrides []NoteOverride `json:"note_overrides,omitempty"`
}
