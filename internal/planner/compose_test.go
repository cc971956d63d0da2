package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"activity-planner/internal/sunrise"
)

func TestStripSeconds(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2:08:55 PM", "2:08 PM"},
		{"11:00:00 AM", "11:00 AM"},
		{"6:00:00 AM", "6:00 AM"},
		{"12:59:59 am", "12:59 am"},
		{"2:08 PM", "2:08 PM"},
		{"2:08:55:10 PM", "2:08 PM"},
		{" 2:08:55   PM ", "2:08 PM"},
		{"noon", "noon"},
		{"", ""},
		{"2:08 PM PM", "2:08 PM PM"},
		{"0800 AM", "0800 AM"},
		{"2:08:55", "2:08:55"},
		{"12:00:00", "12:00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, StripSeconds(tt.in))
		})
	}
}

func TestStripSeconds_Idempotent(t *testing.T) {
	inputs := []string{
		"2:08:55 PM", "11:00:00 AM", "noon", "", "2:08 PM PM",
		"1:2:3:4 XM", ":: PM", "a:b", "  7:45:32 AM", "7:45:32\tAM",
	}

	for _, in := range inputs {
		once := StripSeconds(in)
		assert.Equal(t, once, StripSeconds(once), "input %q", in)
	}
}

func TestCompose(t *testing.T) {
	composer, err := NewComposer("en")
	require.NoError(t, err)

	plan := composer.Compose(sunrise.Data{
		Sunrise:   "6:00:00 AM",
		Sunset:    "6:00:00 PM",
		DayLength: "12:00:00",
	})

	assert.Equal(t, "6:00:00 AM", plan.Sunrise)
	assert.Equal(t, "6:00:00 PM", plan.Sunset)
	assert.Equal(t, "12:00:00", plan.DayLength)
	require.Len(t, plan.Activities, 4)
	assert.Contains(t, plan.Activities[0], "6:00 AM")
	assert.NotContains(t, plan.Activities[0], "6:00:00")
	assert.Equal(t, "Picnic during the day", plan.Activities[1])
	assert.Contains(t, plan.Activities[2], "6:00 PM")
	assert.Equal(t, "Stargazing after sunset", plan.Activities[3])
}

func TestCompose_DefaultLanguage(t *testing.T) {
	composer, err := NewComposer("")
	require.NoError(t, err)

	plan := composer.Compose(sunrise.Data{
		Sunrise:   "5:47:12 AM",
		Sunset:    "6:31:40 PM",
		DayLength: "12:44:28",
	})

	assert.Equal(t, []string{
		"Caminhada ao nascer do sol às 5:47 AM",
		"Piquenique durante o dia",
		"Fotografia ao pôr do sol às 6:31 PM",
		"Observação de estrelas após o pôr do sol",
	}, plan.Activities)
}

func TestCompose_UnexpectedTimeShapePassesThrough(t *testing.T) {
	composer, err := NewComposer("en")
	require.NoError(t, err)

	plan := composer.Compose(sunrise.Data{Sunrise: "05:47", Sunset: "18:31", DayLength: "12:44:00"})

	assert.Equal(t, "Sunrise walk at 05:47", plan.Activities[0])
	assert.Equal(t, "Sunset photography at 18:31", plan.Activities[2])
}

func TestNewComposer_UnknownLanguage(t *testing.T) {
	_, err := NewComposer("klingon")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported activity language")
}

func TestLanguages(t *testing.T) {
	assert.Equal(t, []string{"en", "pt"}, Languages())
	assert.True(t, IsSupportedLanguage(" PT "))
	assert.False(t, IsSupportedLanguage("fr"))
}
