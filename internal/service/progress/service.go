package progress

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"physiotrack/backend/internal/cache"
	"physiotrack/backend/internal/domain"
	"physiotrack/backend/internal/store"
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

// Service derives per-day exercise completion metrics and accepts the
// feedback submissions that feed them. Metrics are computed lazily on first
// read and memoized per (patient, day); submitting feedback invalidates that
// day's entry.
type Service struct {
	store store.Store
	cache cache.ProgressCache
	log   *slog.Logger
}

func NewService(st store.Store, c cache.ProgressCache, log *slog.Logger) *Service {
	if c == nil {
		panic("progress: cache required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store: st,
		cache: c,
		log:   log.With(slog.String("component", "progress")),
	}
}

// Metrics returns the completion counts for the patient's assigned exercises
// on the given day. Cache failures degrade to recomputation, never to an
// error for the caller.
func (s *Service) Metrics(ctx context.Context, patientID int64, day time.Time) (domain.ProgressMetrics, error) {
	if _, err := s.store.GetPatient(ctx, patientID); err != nil {
		return domain.ProgressMetrics{}, err
	}

	key := cacheKey(patientID, day)
	cached, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn("progress cache read failed", slog.Any("err", err), slog.String("key", key))
	} else if ok {
		return cached, nil
	}

	metrics, err := s.compute(ctx, patientID, day)
	if err != nil {
		return domain.ProgressMetrics{}, err
	}

	if err := s.cache.Set(ctx, key, metrics); err != nil {
		s.log.Warn("progress cache write failed", slog.Any("err", err), slog.String("key", key))
	}
	return metrics, nil
}

type FeedbackInput struct {
	PatientID    int64
	AssignmentID int64
	Day          time.Time
	Completed    bool
	PainLevel    int
	Comment      string
}

// SubmitFeedback records a patient's report for one assigned exercise and
// invalidates the cached metrics for that day.
func (s *Service) SubmitFeedback(ctx context.Context, in FeedbackInput) (domain.ExerciseFeedback, error) {
	if in.PainLevel < 0 || in.PainLevel > 10 {
		return domain.ExerciseFeedback{}, validationError("pain_level must be between 0 and 10")
	}

	if _, err := s.store.GetPatient(ctx, in.PatientID); err != nil {
		return domain.ExerciseFeedback{}, err
	}

	assignments, err := s.store.ListExerciseAssignments(ctx, in.PatientID, in.Day)
	if err != nil {
		return domain.ExerciseFeedback{}, err
	}
	assigned := false
	for _, a := range assignments {
		if a.ID == in.AssignmentID {
			assigned = true
			break
		}
	}
	if !assigned {
		return domain.ExerciseFeedback{}, validationError("exercise is not assigned for that day")
	}

	fb, err := s.store.AddExerciseFeedback(ctx, domain.ExerciseFeedback{
		PatientID:    in.PatientID,
		AssignmentID: in.AssignmentID,
		Day:          domain.DayKey(in.Day),
		Completed:    in.Completed,
		PainLevel:    in.PainLevel,
		Comment:      strings.TrimSpace(in.Comment),
	})
	if err != nil {
		return domain.ExerciseFeedback{}, err
	}

	key := cacheKey(in.PatientID, in.Day)
	if err := s.cache.Invalidate(ctx, key); err != nil {
		s.log.Warn("progress cache invalidation failed", slog.Any("err", err), slog.String("key", key))
	}

	s.log.Info("exercise feedback submitted",
		slog.Int64("feedback_id", fb.ID),
		slog.Int64("patient_id", fb.PatientID),
		slog.Int64("assignment_id", fb.AssignmentID),
		slog.Bool("completed", fb.Completed),
	)
	return fb, nil
}

func (s *Service) compute(ctx context.Context, patientID int64, day time.Time) (domain.ProgressMetrics, error) {
	assignments, err := s.store.ListExerciseAssignments(ctx, patientID, day)
	if err != nil {
		return domain.ProgressMetrics{}, err
	}
	feedback, err := s.store.ListExerciseFeedback(ctx, patientID, day)
	if err != nil {
		return domain.ProgressMetrics{}, err
	}

	active := make(map[int64]struct{}, len(assignments))
	for _, a := range assignments {
		active[a.ID] = struct{}{}
	}

	completed := make(map[int64]struct{})
	for _, fb := range feedback {
		if !fb.Completed {
			continue
		}
		if _, ok := active[fb.AssignmentID]; !ok {
			continue
		}
		completed[fb.AssignmentID] = struct{}{}
	}

	return domain.ProgressMetrics{
		Completed: len(completed),
		Total:     len(assignments),
	}, nil
}

func cacheKey(patientID int64, day time.Time) string {
	return fmt.Sprintf("progress:%d:%s", patientID, domain.DayKey(day).Format("2006-01-02"))
}
