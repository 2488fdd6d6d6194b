package timeutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDaysFromSeconds(t *testing.T) {
	tests := []struct {
		name    string
		seconds int64
		want    int64
	}{
		{"zero", 0, 0},
		{"just under a day", Day - 1, 0},
		{"exactly one day", Day, 1},
		{"four days and change", 4*Day + 3600, 4},
		{"negative floors down", -1, -1},
		{"negative whole day", -Day, -1},
		{"negative two days and change", -2*Day - 1, -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysFromSeconds(tt.seconds))
		})
	}
}

func TestSecondsSince(t *testing.T) {
	assert.Equal(t, int64(100), SecondsSince(900, 1000))
	assert.Equal(t, int64(-50), SecondsSince(1050, 1000))
}

func TestFormatHours(t *testing.T) {
	assert.Equal(t, "5h 30m", FormatHours(5*Hour+30*Minute))
	assert.Equal(t, "0h 0m", FormatHours(0))
	assert.Equal(t, "0h 0m", FormatHours(-10))
	assert.Equal(t, "48h 1m", FormatHours(48*Hour+90))
}
