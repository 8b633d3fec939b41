package builtin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisaTool_Requirements(t *testing.T) {
	vt := NewVisaTool("")
	cases := []struct {
		name        string
		nationality string
		destination string
		required    bool
		stayDays    int
	}{
		{"usa to france visa-free", "USA", "France", false, 90},
		{"uk to spain visa-free", "uk", "spain", false, 90},
		{"case-insensitive match", "Usa", "DENMARK", false, 90},
		{"unknown pair needs visa", "brazil", "japan", true, 30},
		{"pair not symmetric", "spain", "usa", true, 30},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := vt.Execute(context.Background(), map[string]any{
				"nationality":         tc.nationality,
				"destination_country": tc.destination,
			})
			require.NoError(t, err)
			resp := out.(*VisaResponse)
			assert.Equal(t, tc.required, resp.Requirement.Required)
			assert.Equal(t, tc.stayDays, resp.Requirement.AllowedStayDays)
			if tc.required {
				assert.Equal(t, "tourist", resp.Requirement.Type)
			}
		})
	}
}

func TestVisaTool_DefaultNationality(t *testing.T) {
	vt := NewVisaTool("usa")
	out, err := vt.Execute(context.Background(), map[string]any{"destination_country": "France"})
	require.NoError(t, err)
	resp := out.(*VisaResponse)
	assert.Equal(t, "usa", resp.Nationality)
	assert.False(t, resp.Requirement.Required)
}

func TestVisaTool_MissingNationalityRejected(t *testing.T) {
	vt := NewVisaTool("")
	_, err := vt.Execute(context.Background(), map[string]any{"destination_country": "France"})
	require.Error(t, err)
}
