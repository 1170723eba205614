package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"physiotrack/backend/internal/domain"
	"physiotrack/backend/internal/service/patients"
	"physiotrack/backend/internal/service/progress"
	"physiotrack/backend/internal/service/scheduling"
)

type schedulingService interface {
	ProposeBooking(ctx context.Context, in scheduling.BookingInput) (domain.Appointment, error)
	DefaultBookingSlot() (time.Time, string)
	MinimumSelectableTime(date time.Time) time.Time
	RespondToReschedule(ctx context.Context, in scheduling.RescheduleResponseInput) (scheduling.RescheduleOutcome, error)
	ProposeReschedule(ctx context.Context, in scheduling.ProposeRescheduleInput) (domain.RescheduleRequest, error)
	Reschedules(ctx context.Context, patientID int64) ([]domain.RescheduleRequest, error)
	Confirm(ctx context.Context, appointmentID int64) (domain.Appointment, error)
}

type progressService interface {
	Metrics(ctx context.Context, patientID int64, day time.Time) (domain.ProgressMetrics, error)
	SubmitFeedback(ctx context.Context, in progress.FeedbackInput) (domain.ExerciseFeedback, error)
}

type patientsService interface {
	Get(ctx context.Context, patientID int64) (domain.Patient, error)
	UpdateProfile(ctx context.Context, in patients.ProfileInput) (domain.Patient, error)
}

// Handler serves the JSON API the mobile app consumes.
type Handler struct {
	scheduling schedulingService
	progress   progressService
	patients   patientsService
	log        *slog.Logger
}

func NewHandler(sched schedulingService, prog progressService, pats patientsService, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		scheduling: sched,
		progress:   prog,
		patients:   pats,
		log:        log.With(slog.String("component", "http")),
	}
}

// Routes builds the chi router with the standard middleware chain.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)

	r.Route("/patients/{patientID}", func(r chi.Router) {
		r.Get("/", h.getPatient)
		r.Put("/profile", h.updateProfile)
		r.Get("/appointments", h.listAppointments)
		r.Get("/reschedules", h.listReschedules)
		r.Post("/feedback", h.submitFeedback)
		r.Get("/progress", h.getProgress)
	})

	r.Post("/appointments", h.bookAppointment)
	r.Post("/appointments/{appointmentID}/confirm", h.confirmAppointment)
	r.Get("/bookings/defaults", h.bookingDefaults)

	r.Post("/reschedules", h.proposeReschedule)
	r.Post("/reschedules/{requestID}/response", h.respondToReschedule)

	return r
}
