package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func routePlanFixture() Plan {
	p := Plan{}
	p.Accumulate("get_route", map[string]any{
		"total_distance_km": 150.0,
		"days":              3,
		"segments": []any{
			map[string]any{"day": 1, "distance_km": 50.0, "start": "Paris", "end": "Midpoint A"},
			map[string]any{"day": 2, "distance_km": 50.0, "start": "Midpoint A", "end": "Midpoint B"},
			map[string]any{"day": 3, "distance_km": 50.0, "start": "Midpoint B", "end": "Lyon"},
		},
	})
	return p
}

func TestAssemble_NoRouteMeansNoPlan(t *testing.T) {
	p := Plan{}
	p.Accumulate("get_weather", map[string]any{"daily": []any{map[string]any{"day": 1}}})
	assert.Nil(t, Assemble(p, AssembleDefaults{}))

	empty := Plan{}
	empty.Accumulate("get_route", map[string]any{"segments": []any{}})
	assert.Nil(t, Assemble(empty, AssembleDefaults{}))
}

func TestAssemble_DayIndexingWithSparseWeather(t *testing.T) {
	p := routePlanFixture()
	p.Accumulate("get_weather", map[string]any{
		"daily": []any{map[string]any{"day": 2, "conditions": "sunny with light winds"}},
	})

	trip := Assemble(p, AssembleDefaults{})
	require.NotNil(t, trip)
	assert.Equal(t, 150.0, trip.TotalDistanceKm)
	assert.Equal(t, 3, trip.Days)
	require.Len(t, trip.Itinerary, 3)

	for i, dp := range trip.Itinerary {
		assert.Equal(t, i+1, dp.Day, "itinerary must be sorted ascending by day")
	}
	assert.Nil(t, trip.Itinerary[0].Weather)
	require.NotNil(t, trip.Itinerary[1].Weather)
	assert.Equal(t, "sunny with light winds", trip.Itinerary[1].Weather.(map[string]any)["conditions"])
	assert.Nil(t, trip.Itinerary[2].Weather)
}

func TestAssemble_LaterEntriesOverwriteSameDay(t *testing.T) {
	p := routePlanFixture()
	p.Accumulate("get_weather", map[string]any{
		"daily": []any{map[string]any{"day": 2, "conditions": "rainy"}},
	})
	p.Accumulate("get_weather", map[string]any{
		"daily": []any{map[string]any{"day": 2, "conditions": "clearing up"}},
	})

	trip := Assemble(p, AssembleDefaults{})
	require.NotNil(t, trip)
	assert.Equal(t, "clearing up", trip.Itinerary[1].Weather.(map[string]any)["conditions"])
}

func TestAssemble_PerDayFieldsAndTripLevelVisa(t *testing.T) {
	p := routePlanFixture()
	p.Accumulate("find_accommodation", map[string]any{
		"day":     1,
		"options": []any{map[string]any{"type": "hostel", "price_per_night": 64.0}},
	})
	p.Accumulate("get_elevation_profile", map[string]any{
		"profile": []any{map[string]any{"day": 3, "difficulty": "hard"}},
	})
	p.Accumulate("get_points_of_interest", map[string]any{
		"day":  2,
		"pois": []any{map[string]any{"name": "Old Town"}},
	})
	p.Accumulate("check_visa_requirements", map[string]any{
		"nationality": "usa",
		"requirement": map[string]any{"required": false},
	})

	trip := Assemble(p, AssembleDefaults{})
	require.NotNil(t, trip)

	assert.NotNil(t, trip.Itinerary[0].Accommodation)
	assert.Nil(t, trip.Itinerary[1].Accommodation)
	assert.NotNil(t, trip.Itinerary[2].Elevation)
	assert.NotNil(t, trip.Itinerary[1].PointsOfInterest)

	// 签证是行程级信息，每一天都带
	for _, dp := range trip.Itinerary {
		require.NotNil(t, dp.Visa)
	}
}

func TestAssemble_BudgetFromToolWins(t *testing.T) {
	p := routePlanFixture()
	p.Accumulate("estimate_budget", map[string]any{"total": 400.0, "currency": "EUR"})

	trip := Assemble(p, AssembleDefaults{})
	require.NotNil(t, trip)
	budget, ok := trip.Budget.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 400.0, budget["total"])
}

func TestAssemble_BudgetSynthesizedFromLodging(t *testing.T) {
	p := routePlanFixture()
	p.Accumulate("find_accommodation", map[string]any{
		"day": 1,
		"options": []any{
			map[string]any{"type": "hostel", "price_per_night": 60.0},
			map[string]any{"type": "bnb", "price_per_night": 90.0},
		},
	})

	trip := Assemble(p, AssembleDefaults{Currency: "eur"})
	require.NotNil(t, trip)
	budget, ok := trip.Budget.(map[string]any)
	require.True(t, ok, "budget should be synthesized when the tool never ran")
	assert.Equal(t, "EUR", budget["currency"])

	// day1 均价 75，day2/3 回退默认 70：住宿 215 + 餐饮 120 + 杂项 45，再加 5%
	breakdown := budget["breakdown"].(map[string]any)
	assert.Equal(t, 215.0, breakdown["lodging_total"])
	assert.InDelta(t, 399.0, budget["total"].(float64), 0.01)
}

func TestAssemble_MultipleRoutesLastNonEmptyWins(t *testing.T) {
	p := routePlanFixture()
	p.Accumulate("get_route", map[string]any{
		"total_distance_km": 80.0,
		"days":              1,
		"segments": []any{
			map[string]any{"day": 1, "distance_km": 80.0, "start": "Paris", "end": "Chartres"},
		},
	})

	trip := Assemble(p, AssembleDefaults{})
	require.NotNil(t, trip)
	assert.Equal(t, 1, trip.Days)
	require.Len(t, trip.Itinerary, 1)
	assert.Equal(t, "Chartres", trip.Itinerary[0].End)
}
