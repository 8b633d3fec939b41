package builtin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCurrency(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "USD"},
		{"eur", "EUR"},
		{"USD", "USD"},
		{"usdt", "USDT"},
		{"dollars", "USD"},
		{"e", "USD"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeCurrency(tc.in), "NormalizeCurrency(%q)", tc.in)
	}
}

func TestAverageLodgingCost(t *testing.T) {
	assert.Equal(t, 0.0, AverageLodgingCost(nil))
	assert.Equal(t, 0.0, AverageLodgingCost([]AccommodationOption{{PricePerNight: 0}}))

	opts := []AccommodationOption{
		{PricePerNight: 60},
		{PricePerNight: 90},
		{PricePerNight: 0}, // 无效价格不计入
	}
	assert.Equal(t, 75.0, AverageLodgingCost(opts))
}

func TestEstimate_DefaultsWithBuffer(t *testing.T) {
	resp := Estimate(BudgetInput{Days: 3}, nil)

	// 3 天默认：住宿 210 + 餐饮 120 + 杂项 45 = 375，5% buffer = 18.75
	assert.Equal(t, "USD", resp.Currency)
	assert.Equal(t, 210.0, resp.Breakdown.LodgingTotal)
	assert.Equal(t, 120.0, resp.Breakdown.FoodTotal)
	assert.Equal(t, 45.0, resp.Breakdown.IncidentalsTotal)
	assert.Equal(t, 18.75, resp.Breakdown.BufferTotal)
	assert.Equal(t, 393.75, resp.Total)
	assert.Equal(t, 131.25, resp.PerDay)
}

func TestEstimate_LodgingPerDayOverridesNightly(t *testing.T) {
	resp := Estimate(BudgetInput{Travelers: 2, Currency: "eur"}, []float64{64, 0, 80})

	// 天数取 lodgingPerDay 长度；0 价格日回退默认单晚 70
	assert.Equal(t, "EUR", resp.Currency)
	assert.Equal(t, 64.0+70.0+80.0, resp.Breakdown.LodgingTotal)
	assert.Equal(t, 40.0*3*2, resp.Breakdown.FoodTotal)
	assert.Equal(t, 15.0*3*2, resp.Breakdown.IncidentalsTotal)

	subtotal := resp.Breakdown.LodgingTotal + resp.Breakdown.FoodTotal + resp.Breakdown.IncidentalsTotal
	assert.InDelta(t, subtotal*0.05, resp.Breakdown.BufferTotal, 0.01)
	assert.InDelta(t, subtotal*1.05, resp.Total, 0.01)
}

func TestBudgetTool_Execute(t *testing.T) {
	bt := NewBudgetTool("eur")
	out, err := bt.Execute(context.Background(), map[string]any{
		"days":      5.0,
		"travelers": 2.0,
	})
	require.NoError(t, err)
	resp := out.(*BudgetResponse)
	assert.Equal(t, "EUR", resp.Currency, "default currency from config should apply")
	assert.Greater(t, resp.Total, 0.0)
	assert.Equal(t, resp.PerDay, round2(resp.Total/5))
}
