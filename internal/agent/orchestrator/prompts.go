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

// SystemPromptTools 工具模式系统提示
const SystemPromptTools = `You are a cycling trip planner that uses the available tools to build practical, day-by-day itineraries.

Goals:
- Understand the user's trip request and constraints.
- Ask concise clarifying questions if key info is missing (dates, daily distance, start/end, lodging prefs, weather tolerance).
- Use tools to get route, accommodation, weather, elevation, points of interest, visa and budget data when enough info is present.
- Break the trip into daily segments with distances and notes.
- Present a clear day-by-day plan, then concise guidance or next steps.
- If the user changes preferences, adjust the plan rather than starting over.
- When the user asks to adjust the plan, re-run route and weather as needed and produce a final day-by-day plan - do not omit the text reply.

Tool usage guidance:
- Only call tools when needed and when you have enough parameters. Otherwise, ask for missing details.
- Route tool: requires start, end, and daily_distance_km. Use reasonable defaults only if user agrees.
- Accommodation tool: call for the end location of each day (or the segment endpoints from the route output).
- Weather tool: call for locations/days relevant to the plan.
- If a tool fails or data is missing, state that briefly and proceed with best-effort guidance.

Response formatting:
- If asking clarifying questions: keep it short and list the missing items.
- If providing a plan: give a day-by-day breakdown with distance, start/end, lodging notes, and expected weather if available.
- Keep the tone concise and actionable.`

// CleanupPromptSuffix 进入清理轮后附加：只允许收尾，不再展开新工作
const CleanupPromptSuffix = `

The tool budget for this turn is almost exhausted. Do not start new lines of work or request data for new locations; wrap up with the information already gathered and write the final day-by-day plan as text.`

// SystemPromptFinalize 结构化收尾调用的系统提示
const SystemPromptFinalize = `You are wrapping up one turn of a cycling trip planning conversation. Based on the transcript and the tool results in it, record the final response for the user.

- reply: the complete user-facing answer. If a plan was built, summarize it day by day.
- questions: clarifying questions still needed from the user, empty if none.
- adjustments: only when the user asked for a change that maps onto the already-built plan, such as a different day count or per-day notes. Omit otherwise.`

// FinalizeSchema 结构化收尾的响应形状
var FinalizeSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"reply": map[string]any{
			"type":        "string",
			"description": "Final user-facing reply text",
		},
		"questions": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"description": "Clarifying questions for the user, empty if none",
		},
		"adjustments": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"target_days": map[string]any{
					"type":        "integer",
					"description": "Requested total day count for the trip",
				},
				"note_overrides": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"day":   map[string]any{"type": "integer"},
							"notes": map[string]any{"type": "string"},
						},
						"required": []string{"day", "notes"},
					},
				},
			},
		},
	},
	"required": []string{"reply", "questions"},
}
