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
	"math"
	"strings"

	"trip-agent/internal/tool"
	"trip-agent/pkg/utils"
)

// 预算合成的兜底默认值
const (
	DefaultNightlyBudget     = 70.0
	DefaultFoodPerDay        = 40.0
	DefaultIncidentalsPerDay = 15.0
)

// BudgetBreakdown 预算分项
type BudgetBreakdown struct {
	LodgingTotal     float64 `json:"lodging_total"`
	FoodTotal        float64 `json:"food_total"`
	IncidentalsTotal float64 `json:"incidentals_total"`
	BufferTotal      float64 `json:"buffer_total"`
}

// BudgetResponse 预算工具输出
type BudgetResponse struct {
	Currency  string          `json:"currency"`
	Total     float64         `json:"total"`
	PerDay    float64         `json:"per_day,omitempty"`
	Breakdown BudgetBreakdown `json:"breakdown"`
	Notes     string          `json:"notes,omitempty"`
}

// BudgetInput 预算估算入参（零值字段使用默认）
type BudgetInput struct {
	Days              int
	NightlyBudget     float64
	FoodPerDay        float64
	IncidentalsPerDay float64
	Travelers         int
	Currency          string
}

// NormalizeCurrency 规整币种：3~4 位字母大写，否则回退 USD
func NormalizeCurrency(cur string) string {
	if cur == "" {
		return "USD"
	}
	cur = strings.ToUpper(cur)
	if l := len(cur); l == 3 || l == 4 {
		return cur
	}
	return "USD"
}

// AverageLodgingCost 住宿选项均价；无有效价格返回 0
func AverageLodgingCost(options []AccommodationOption) float64 {
	if len(options) == 0 {
		return 0
	}
	sum := 0.0
	n := 0
	for _, opt := range options {
		if opt.PricePerNight > 0 {
			sum += opt.PricePerNight
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Estimate 纯函数预算估算：lodgingPerDay 为每日住宿均价（0 表示用默认单晚预算），
// 供工具调用和 Plan Assembler 合成共用。
func Estimate(in BudgetInput, lodgingPerDay []float64) BudgetResponse {
	days := in.Days
	if days <= 0 {
		days = len(lodgingPerDay)
	}
	if days <= 0 {
		days = 1
	}
	nightly := utils.DefaultFloat(in.NightlyBudget, DefaultNightlyBudget)
	food := utils.DefaultFloat(in.FoodPerDay, DefaultFoodPerDay)
	incidentals := utils.DefaultFloat(in.IncidentalsPerDay, DefaultIncidentalsPerDay)
	travelers := in.Travelers
	if travelers < 1 {
		travelers = 1
	}

	lodgingTotal := 0.0
	if len(lodgingPerDay) > 0 {
		for _, cost := range lodgingPerDay {
			if cost > 0 {
				lodgingTotal += cost
			} else {
				lodgingTotal += nightly
			}
		}
	} else {
		lodgingTotal = nightly * float64(days)
	}

	foodTotal := food * float64(days) * float64(travelers)
	incidentalsTotal := incidentals * float64(days) * float64(travelers)
	bufferTotal := 0.05 * (lodgingTotal + foodTotal + incidentalsTotal)
	total := lodgingTotal + foodTotal + incidentalsTotal + bufferTotal

	return BudgetResponse{
		Currency: NormalizeCurrency(in.Currency),
		Total:    round2(total),
		PerDay:   round2(total / float64(days)),
		Breakdown: BudgetBreakdown{
			LodgingTotal:     round2(lodgingTotal),
			FoodTotal:        round2(foodTotal),
			IncidentalsTotal: round2(incidentalsTotal),
			BufferTotal:      round2(bufferTotal),
		},
		Notes: "Estimated budget; costs are approximate and exclude transportation to/from the start.",
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// BudgetTool estimate_budget：按天数与偏好估算行程预算
type BudgetTool struct {
	defaultCurrency string
}

// NewBudgetTool 创建预算工具，defaultCurrency 为空时 USD
func NewBudgetTool(defaultCurrency string) *BudgetTool {
	return &BudgetTool{defaultCurrency: defaultCurrency}
}

// Name 实现 tool.Tool
func (t *BudgetTool) Name() string { return "estimate_budget" }

// Description 实现 tool.Tool
func (t *BudgetTool) Description() string {
	return "Estimate a trip budget: lodging, food and incidentals per day plus a small buffer. All inputs optional; sensible defaults are applied."
}

// Schema 实现 tool.Tool
func (t *BudgetTool) Schema() tool.Schema {
	return tool.Schema{
		Type: "object",
		Properties: map[string]tool.SchemaProperty{
			"days":                {Type: "integer", Description: "Trip length in days"},
			"nightly_budget":      {Type: "number", Description: "Lodging budget per night"},
			"food_per_day":        {Type: "number", Description: "Food budget per day per traveler"},
			"incidentals_per_day": {Type: "number", Description: "Incidentals per day per traveler"},
			"travelers":           {Type: "integer", Description: "Number of travelers"},
			"currency":            {Type: "string", Description: "Budget currency code, e.g. USD or EUR"},
		},
	}
}

// Execute 实现 tool.Tool
func (t *BudgetTool) Execute(ctx context.Context, input map[string]any) (any, error) {
	in := BudgetInput{
		Days:              inputInt(input, "days"),
		NightlyBudget:     inputFloat(input, "nightly_budget"),
		FoodPerDay:        inputFloat(input, "food_per_day"),
		IncidentalsPerDay: inputFloat(input, "incidentals_per_day"),
		Travelers:         inputInt(input, "travelers"),
		Currency:          utils.CoalesceString(inputString(input, "currency"), t.defaultCurrency),
	}
	resp := Estimate(in, nil)
	return &resp, nil
}
