package planner

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// ActivityRequest is one inbound plan request, already parsed.
type ActivityRequest struct {
	Latitude  float64
	Longitude float64
	Date      time.Time
}

// ValidationError rejects a request before any outbound call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NewActivityRequest parses a "YYYY-MM-DD" date and validates the request.
func NewActivityRequest(latitude, longitude float64, date string) (ActivityRequest, error) {
	parsed, err := time.Parse(time.DateOnly, strings.TrimSpace(date))
	if err != nil {
		return ActivityRequest{}, &ValidationError{Field: "date", Message: "expected a calendar date in YYYY-MM-DD format"}
	}

	req := ActivityRequest{
		Latitude:  latitude,
		Longitude: longitude,
		Date:      parsed,
	}
	if err := req.Validate(); err != nil {
		return ActivityRequest{}, err
	}
	return req, nil
}

func (r ActivityRequest) Validate() error {
	if math.IsNaN(r.Latitude) || r.Latitude < -90 || r.Latitude > 90 {
		return &ValidationError{Field: "latitude", Message: "must be between -90 and 90"}
	}
	if math.IsNaN(r.Longitude) || r.Longitude < -180 || r.Longitude > 180 {
		return &ValidationError{Field: "longitude", Message: "must be between -180 and 180"}
	}
	if r.Date.IsZero() {
		return &ValidationError{Field: "date", Message: "is required"}
	}
	return nil
}
