package sunrise

import (
	"context"
	"time"
)

// Provider fetches sunrise and sunset information for a place and day.
type Provider interface {
	Fetch(ctx context.Context, latitude, longitude float64, date time.Time) (*Data, error)
}

// Data holds the provider's pre-formatted strings as received,
// e.g. "6:12:03 AM" and a day length of "11:47:10".
type Data struct {
	Sunrise   string `json:"sunrise"`
	Sunset    string `json:"sunset"`
	DayLength string `json:"day_length"`
}
