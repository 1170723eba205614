package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"physiotrack/backend/internal/domain"
	"physiotrack/backend/internal/service/patients"
	"physiotrack/backend/internal/service/progress"
	"physiotrack/backend/internal/service/scheduling"
)

const dateLayout = "2006-01-02"

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) getPatient(w http.ResponseWriter, r *http.Request) {
	patientID, ok := pathID(w, r, "patientID")
	if !ok {
		return
	}
	p, err := h.patients.Get(r.Context(), patientID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type profileRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Age   int    `json:"age"`
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	patientID, ok := pathID(w, r, "patientID")
	if !ok {
		return
	}
	var req profileRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p, err := h.patients.UpdateProfile(r.Context(), patients.ProfileInput{
		PatientID: patientID,
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Age:       req.Age,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) listAppointments(w http.ResponseWriter, r *http.Request) {
	patientID, ok := pathID(w, r, "patientID")
	if !ok {
		return
	}
	p, err := h.patients.Get(r.Context(), patientID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	history := p.History
	if history == nil {
		history = []domain.Appointment{}
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *Handler) listReschedules(w http.ResponseWriter, r *http.Request) {
	patientID, ok := pathID(w, r, "patientID")
	if !ok {
		return
	}
	reqs, err := h.scheduling.Reschedules(r.Context(), patientID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if reqs == nil {
		reqs = []domain.RescheduleRequest{}
	}
	writeJSON(w, http.StatusOK, reqs)
}

type bookingRequest struct {
	PatientID         int64  `json:"patient_id"`
	PhysiotherapistID int64  `json:"physiotherapist_id"`
	Date              string `json:"date"`
	TimeOfDay         string `json:"time_of_day"`
	Notes             string `json:"notes"`
}

func (h *Handler) bookAppointment(w http.ResponseWriter, r *http.Request) {
	var req bookingRequest
	if !decodeBody(w, r, &req) {
		return
	}
	date, err := time.ParseInLocation(dateLayout, req.Date, time.UTC)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be formatted as YYYY-MM-DD")
		return
	}
	appt, err := h.scheduling.ProposeBooking(r.Context(), scheduling.BookingInput{
		PatientID:         req.PatientID,
		PhysiotherapistID: req.PhysiotherapistID,
		Date:              date,
		TimeOfDay:         req.TimeOfDay,
		Notes:             req.Notes,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, appt)
}

func (h *Handler) confirmAppointment(w http.ResponseWriter, r *http.Request) {
	appointmentID, ok := pathID(w, r, "appointmentID")
	if !ok {
		return
	}
	appt, err := h.scheduling.Confirm(r.Context(), appointmentID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

type bookingDefaultsResponse struct {
	Date                  string    `json:"date"`
	TimeOfDay             string    `json:"time_of_day"`
	MinimumSelectableTime time.Time `json:"minimum_selectable_time"`
}

func (h *Handler) bookingDefaults(w http.ResponseWriter, r *http.Request) {
	date, timeOfDay := h.scheduling.DefaultBookingSlot()
	writeJSON(w, http.StatusOK, bookingDefaultsResponse{
		Date:                  date.Format(dateLayout),
		TimeOfDay:             timeOfDay,
		MinimumSelectableTime: h.scheduling.MinimumSelectableTime(date),
	})
}

type proposeRescheduleRequest struct {
	PatientID         int64  `json:"patient_id"`
	OriginalDate      string `json:"original_date"`
	OriginalTimeOfDay string `json:"original_time_of_day"`
	ProposedDate      string `json:"proposed_date"`
	ProposedTimeOfDay string `json:"proposed_time_of_day"`
}

func (h *Handler) proposeReschedule(w http.ResponseWriter, r *http.Request) {
	var req proposeRescheduleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	originalDate, err := time.ParseInLocation(dateLayout, req.OriginalDate, time.UTC)
	if err != nil {
		writeError(w, http.StatusBadRequest, "original_date must be formatted as YYYY-MM-DD")
		return
	}
	proposedDate, err := time.ParseInLocation(dateLayout, req.ProposedDate, time.UTC)
	if err != nil {
		writeError(w, http.StatusBadRequest, "proposed_date must be formatted as YYYY-MM-DD")
		return
	}
	created, err := h.scheduling.ProposeReschedule(r.Context(), scheduling.ProposeRescheduleInput{
		PatientID:         req.PatientID,
		OriginalDate:      originalDate,
		OriginalTimeOfDay: req.OriginalTimeOfDay,
		ProposedDate:      proposedDate,
		ProposedTimeOfDay: req.ProposedTimeOfDay,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

type rescheduleResponseRequest struct {
	Accept       bool   `json:"accept"`
	NewDate      string `json:"new_date"`
	NewTimeOfDay string `json:"new_time_of_day"`
}

type rescheduleResponseBody struct {
	Request       domain.RescheduleRequest `json:"request"`
	Appointment   *domain.Appointment      `json:"appointment,omitempty"`
	OriginalFound bool                     `json:"original_found"`
}

func (h *Handler) respondToReschedule(w http.ResponseWriter, r *http.Request) {
	requestID, err := uuid.Parse(chi.URLParam(r, "requestID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request id")
		return
	}
	var req rescheduleResponseRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var newDate time.Time
	if req.NewDate != "" {
		newDate, err = time.ParseInLocation(dateLayout, req.NewDate, time.UTC)
		if err != nil {
			writeError(w, http.StatusBadRequest, "new_date must be formatted as YYYY-MM-DD")
			return
		}
	}

	out, err := h.scheduling.RespondToReschedule(r.Context(), scheduling.RescheduleResponseInput{
		RequestID:    requestID,
		NewDate:      newDate,
		NewTimeOfDay: req.NewTimeOfDay,
		Accept:       req.Accept,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rescheduleResponseBody{
		Request:       out.Request,
		Appointment:   out.Appointment,
		OriginalFound: out.OriginalFound,
	})
}

type feedbackRequest struct {
	AssignmentID int64  `json:"assignment_id"`
	Day          string `json:"day"`
	Completed    bool   `json:"completed"`
	PainLevel    int    `json:"pain_level"`
	Comment      string `json:"comment"`
}

func (h *Handler) submitFeedback(w http.ResponseWriter, r *http.Request) {
	patientID, ok := pathID(w, r, "patientID")
	if !ok {
		return
	}
	var req feedbackRequest
	if !decodeBody(w, r, &req) {
		return
	}
	day := time.Now().UTC()
	if req.Day != "" {
		var err error
		day, err = time.ParseInLocation(dateLayout, req.Day, time.UTC)
		if err != nil {
			writeError(w, http.StatusBadRequest, "day must be formatted as YYYY-MM-DD")
			return
		}
	}
	fb, err := h.progress.SubmitFeedback(r.Context(), progress.FeedbackInput{
		PatientID:    patientID,
		AssignmentID: req.AssignmentID,
		Day:          day,
		Completed:    req.Completed,
		PainLevel:    req.PainLevel,
		Comment:      req.Comment,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, fb)
}

type progressResponse struct {
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Ratio     float64 `json:"ratio"`
}

func (h *Handler) getProgress(w http.ResponseWriter, r *http.Request) {
	patientID, ok := pathID(w, r, "patientID")
	if !ok {
		return
	}
	day := time.Now().UTC()
	if q := r.URL.Query().Get("day"); q != "" {
		var err error
		day, err = time.ParseInLocation(dateLayout, q, time.UTC)
		if err != nil {
			writeError(w, http.StatusBadRequest, "day must be formatted as YYYY-MM-DD")
			return
		}
	}
	metrics, err := h.progress.Metrics(r.Context(), patientID, day)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progressResponse{
		Completed: metrics.Completed,
		Total:     metrics.Total,
		Ratio:     metrics.Ratio(),
	})
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
