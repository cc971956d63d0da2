package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"activity-planner/internal/observability"
	"activity-planner/internal/planner"
	"activity-planner/internal/sunrise"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// PlanActivityRequest is the JSON body of POST /plan-activity. The
// coordinates are pointers so that 0 is accepted while a missing field is not.
type PlanActivityRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required,min=-90,max=90"`
	Longitude *float64 `json:"longitude" binding:"required,min=-180,max=180"`
	Date      string   `json:"date" binding:"required,datetime=2006-01-02"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (s *Server) planActivityHandler(c *gin.Context) {
	var body PlanActivityRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		s.respond(c, http.StatusUnprocessableEntity, gin.H{"detail": bindingErrors(err)})
		return
	}

	req, err := planner.NewActivityRequest(*body.Latitude, *body.Longitude, body.Date)
	if err != nil {
		s.respondError(c, err)
		return
	}

	plan, err := s.planner.Plan(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.respond(c, http.StatusOK, plan)
}

func (s *Server) respondError(c *gin.Context, err error) {
	var (
		invalid     *planner.ValidationError
		unreachable *sunrise.UnreachableError
		domain      *sunrise.DomainError
	)

	switch {
	case errors.As(err, &invalid):
		s.respond(c, http.StatusUnprocessableEntity, gin.H{
			"detail": []FieldError{{Field: invalid.Field, Message: invalid.Message}},
		})
	case errors.As(err, &unreachable):
		slog.Error("plan failed: upstream unreachable", "component", "api",
			"request_id", c.GetString(requestIDKey), "error", err)
		s.respond(c, http.StatusBadGateway, gin.H{
			"error": "upstream unavailable",
			"detail": fmt.Sprintf(
				"Could not reach the sunrise/sunset service after %d attempts (network error or timeout).",
				unreachable.Attempts),
		})
	case errors.As(err, &domain):
		slog.Error("plan failed: upstream returned unusable data", "component", "api",
			"request_id", c.GetString(requestIDKey), "error", err)
		detail := "The sunrise/sunset service returned an error or incomplete data."
		if domain.Status != "" && domain.Status != "OK" {
			detail = fmt.Sprintf("The sunrise/sunset service returned status '%s'.", domain.Status)
		}
		s.respond(c, http.StatusBadGateway, gin.H{
			"error":  "upstream unavailable",
			"detail": detail,
		})
	default:
		slog.Error("plan failed", "component", "api",
			"request_id", c.GetString(requestIDKey), "error", err)
		s.respond(c, http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func (s *Server) respond(c *gin.Context, status int, body any) {
	observability.RecordPlanRequest(strconv.Itoa(status))
	c.JSON(status, body)
}

func bindingErrors(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: "body", Message: err.Error()}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Field:   strings.ToLower(fe.Field()),
			Message: fieldMessage(fe),
		})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be greater than or equal to " + fe.Param()
	case "max":
		return "must be less than or equal to " + fe.Param()
	case "datetime":
		return "must be a calendar date in YYYY-MM-DD format"
	default:
		return "failed on " + fe.Tag()
	}
}
