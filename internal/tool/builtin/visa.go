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
	"strings"

	"trip-agent/internal/tool"
)

// VisaRequirement 签证要求
type VisaRequirement struct {
	Required        bool   `json:"required"`
	Type            string `json:"type,omitempty"`
	Notes           string `json:"notes"`
	AllowedStayDays int    `json:"allowed_stay_days"`
}

// VisaResponse 签证工具输出
type VisaResponse struct {
	Nationality        string          `json:"nationality"`
	DestinationCountry string          `json:"destination_country"`
	Requirement        VisaRequirement `json:"requirement"`
}

// visaFreePairs 免签对（nationality, destination），小写匹配
var visaFreePairs = map[[2]string]bool{
	{"usa", "spain"}:       true,
	{"usa", "france"}:      true,
	{"usa", "denmark"}:     true,
	{"usa", "uk"}:          true,
	{"uk", "spain"}:        true,
	{"uk", "france"}:       true,
	{"uk", "usa"}:          true,
	{"france", "spain"}:    true,
	{"germany", "denmark"}: true,
}

// VisaTool check_visa_requirements：启发式签证判断，非权威数据
type VisaTool struct {
	defaultNationality string
}

// NewVisaTool 创建签证工具；defaultNationality 在入参缺省时兜底
func NewVisaTool(defaultNationality string) *VisaTool {
	return &VisaTool{defaultNationality: defaultNationality}
}

// Name 实现 tool.Tool
func (t *VisaTool) Name() string { return "check_visa_requirements" }

// Description 实现 tool.Tool
func (t *VisaTool) Description() string {
	return "Check whether the rider needs a visa for the destination country. Heuristic only; always advise consulting the official consulate."
}

// Schema 实现 tool.Tool
func (t *VisaTool) Schema() tool.Schema {
	return tool.Schema{
		Type: "object",
		Properties: map[string]tool.SchemaProperty{
			"nationality":         {Type: "string", Description: "Rider's nationality; omit to use the configured default"},
			"destination_country": {Type: "string", Description: "Country being visited"},
		},
		Required: []string{"destination_country"},
	}
}

// Execute 实现 tool.Tool
func (t *VisaTool) Execute(ctx context.Context, input map[string]any) (any, error) {
	nationality := inputString(input, "nationality")
	if nationality == "" {
		nationality = t.defaultNationality
	}
	destination := inputString(input, "destination_country")
	if nationality == "" || destination == "" {
		return nil, fmt.Errorf("nationality 与 destination_country 不能为空")
	}

	key := [2]string{strings.ToLower(nationality), strings.ToLower(destination)}
	var requirement VisaRequirement
	if visaFreePairs[key] {
		requirement = VisaRequirement{
			Required:        false,
			Notes:           "Visa-free entry for short stays (estimated).",
			AllowedStayDays: 90,
		}
	} else {
		requirement = VisaRequirement{
			Required:        true,
			Type:            "tourist",
			Notes:           "Visa likely required; consult the official consulate.",
			AllowedStayDays: 30,
		}
	}
	return &VisaResponse{
		Nationality:        nationality,
		DestinationCountry: destination,
		Requirement:        requirement,
	}, nil
}
