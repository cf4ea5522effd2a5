package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Clark-Hu/tutor-ratings/internal/domain"
	"github.com/Clark-Hu/tutor-ratings/internal/rating"
)

const maxRequestBody = 1 << 20 // 1 MiB

// isoMillis matches JavaScript's Date.prototype.toISOString.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type errorResponse struct {
	Success        bool   `json:"success"`
	Error          string `json:"error"`
	Message        string `json:"message"`
	NextRatingDate string `json:"nextRatingDate,omitempty"`
}

type categoriesRequest struct {
	Communication int `json:"communication"`
	Experience    int `json:"experience"`
	Clarity       int `json:"clarity"`
	Punctuality   int `json:"punctuality"`
	Satisfaction  int `json:"satisfaction"`
}

type submitRatingRequest struct {
	TutorID    int                `json:"tutorId" validate:"required,gt=0"`
	Rating     float64            `json:"rating"`
	Categories *categoriesRequest `json:"categories"`
	ReviewText string             `json:"reviewText" validate:"max=2000"`
	Email      string             `json:"email" validate:"required,email,max=254"`
	DeviceID   string             `json:"deviceId" validate:"max=256"`
	DeviceInfo json.RawMessage    `json:"deviceInfo"`
}

type submitRatingResponse struct {
	Success bool              `json:"success"`
	Updated bool              `json:"updated"`
	Tutor   *domain.Aggregate `json:"tutor,omitempty"`
}

type canRateRequest struct {
	TutorID  int    `json:"tutorId" validate:"required,gt=0"`
	DeviceID string `json:"deviceId" validate:"max=256"`
}

type canRateResponse struct {
	CanRate        bool   `json:"canRate"`
	Message        string `json:"message,omitempty"`
	NextRatingDate string `json:"nextRatingDate,omitempty"`
}

func (s *Server) handleSubmitRating(w http.ResponseWriter, r *http.Request) {
	var req submitRatingRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := validate.Struct(&req); err != nil {
		s.respondValidationError(w, err)
		return
	}

	submit := rating.SubmitRequest{
		TutorID:    req.TutorID,
		Rating:     req.Rating,
		ReviewText: strings.TrimSpace(req.ReviewText),
		Email:      req.Email,
		DeviceID:   strings.TrimSpace(req.DeviceID),
		DeviceInfo: normalizeRaw(req.DeviceInfo),
	}
	if c := req.Categories; c != nil {
		submit.Categories = &domain.CategoryScores{
			Communication: c.Communication,
			Experience:    c.Experience,
			Clarity:       c.Clarity,
			Punctuality:   c.Punctuality,
			Satisfaction:  c.Satisfaction,
		}
	}

	res, err := s.ratings.SubmitRating(r.Context(), submit)
	if err != nil {
		var cooldown *rating.CooldownError
		var invalid *rating.ValidationError
		switch {
		case errors.As(err, &cooldown):
			s.respondJSON(w, http.StatusTooManyRequests, errorResponse{
				Success:        false,
				Error:          "COOLDOWN_ACTIVE",
				Message:        cooldown.Message,
				NextRatingDate: formatISO(cooldown.NextEligibleAt),
			})
		case errors.As(err, &invalid):
			s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", invalid.Error())
		default:
			s.logger.Printf("submit rating error: %v", err)
			s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to save rating")
		}
		return
	}

	s.respondJSON(w, http.StatusOK, submitRatingResponse{
		Success: res.Success,
		Updated: res.Updated,
		Tutor:   res.Aggregate,
	})
}

func (s *Server) handleCanRate(w http.ResponseWriter, r *http.Request) {
	var req canRateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if err := validate.Struct(&req); err != nil {
		s.respondValidationError(w, err)
		return
	}

	elig, err := s.ratings.CanRate(r.Context(), req.TutorID, strings.TrimSpace(req.DeviceID))
	if err != nil {
		s.logger.Printf("can-rate error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to check rating eligibility")
		return
	}

	resp := canRateResponse{CanRate: elig.CanRate, Message: elig.Message}
	if elig.NextRatingDate != nil {
		resp.NextRatingDate = formatISO(*elig.NextRatingDate)
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListTutors(w http.ResponseWriter, r *http.Request) {
	tutors, err := s.ratings.Tutors(r.Context())
	if err != nil {
		s.logger.Printf("list tutors error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list tutors")
		return
	}
	s.respondJSON(w, http.StatusOK, tutors)
}

func (s *Server) handleListRatings(w http.ResponseWriter, r *http.Request) {
	records, err := s.ratings.Ratings(r.Context())
	if err != nil {
		s.logger.Printf("list ratings error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list ratings")
		return
	}
	s.respondJSON(w, http.StatusOK, records)
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Printf("failed to encode response: %v", err)
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, errorResponse{
		Success: false,
		Error:   code,
		Message: message,
	})
}

func (s *Server) respondDecodeError(w http.ResponseWriter, err error) {
	var syntaxError *json.SyntaxError
	var typeError *json.UnmarshalTypeError
	var maxBytesError *http.MaxBytesError
	switch {
	case errors.As(err, &syntaxError), errors.Is(err, io.ErrUnexpectedEOF):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Malformed JSON payload")
	case errors.As(err, &typeError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", fmt.Sprintf("Invalid value for field %s", typeError.Field))
	case errors.As(err, &maxBytesError):
		s.respondError(w, http.StatusRequestEntityTooLarge, "VALIDATION_ERROR", "Request body too large")
	case errors.Is(err, io.EOF):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Request body cannot be empty")
	default:
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unable to parse request body")
	}
}

func (s *Server) respondValidationError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid request")
		return
	}
	fe := verrs[0]
	var msg string
	switch fe.Tag() {
	case "required":
		msg = fmt.Sprintf("%s is required", fe.Field())
	case "email":
		msg = "email must be a valid email address"
	case "gt":
		msg = fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "max":
		msg = fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		msg = fmt.Sprintf("%s is invalid", fe.Field())
	}
	s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", msg)
}

// normalizeRaw drops absent and JSON-null payloads.
func normalizeRaw(raw json.RawMessage) json.RawMessage {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	return json.RawMessage(trimmed)
}

func formatISO(t time.Time) string {
	return t.UTC().Format(isoMillis)
}
