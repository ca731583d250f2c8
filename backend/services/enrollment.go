package services

import (
	"context"
	"fmt"

	"storefront/backend/events"
	"storefront/backend/models"
)

// InitiateResult is either Created or AlreadyExists; both carry the row.
type InitiateResult struct {
	Status     Outcome           `json:"status"`
	Enrollment models.Enrollment `json:"enrollment"`
}

// Next tells the client where to go: pay for a pending enrollment or open the
// purchased content.
func (r InitiateResult) Next() string {
	return NextStep(r.Enrollment)
}

func NextStep(e models.Enrollment) string {
	if e.Completed() {
		return "view_content"
	}
	return "pay"
}

type EnrollmentManager struct {
	courses     CourseStore
	enrollments EnrollmentStore
	opts        Options
}

func NewEnrollmentManager(courses CourseStore, enrollments EnrollmentStore, opts Options) *EnrollmentManager {
	return &EnrollmentManager{courses: courses, enrollments: enrollments, opts: opts.withDefaults()}
}

// InitiateEnrollment creates a pending enrollment for (userID, courseID), or
// returns the existing one in whatever state it is. Concurrent calls for the
// same pair yield one Created at most; the store's unique index decides.
func (m *EnrollmentManager) InitiateEnrollment(ctx context.Context, userID, courseID uint) (InitiateResult, error) {
	res, err := m.initiate(ctx, userID, courseID)
	if err != nil {
		m.opts.Recorder.EnrollmentOutcome(string(OutcomeOf(err)))
		return InitiateResult{}, err
	}
	m.opts.Recorder.EnrollmentOutcome(string(res.Status))
	return res, nil
}

func (m *EnrollmentManager) initiate(ctx context.Context, userID, courseID uint) (InitiateResult, error) {
	if userID == 0 {
		return InitiateResult{}, ErrUnauthenticated
	}

	course, err := m.courses.GetCourse(ctx, courseID)
	if err != nil {
		return InitiateResult{}, fmt.Errorf("initiate enrollment: %w", err)
	}
	if course == nil {
		return InitiateResult{}, fmt.Errorf("course %d: %w", courseID, ErrNotFound)
	}

	enrollment := models.Enrollment{
		UserID:     userID,
		CourseID:   courseID,
		EnrolledAt: m.opts.Clock().UTC(),
	}
	created, err := m.enrollments.InsertPending(ctx, &enrollment)
	if err != nil {
		return InitiateResult{}, fmt.Errorf("initiate enrollment: %w", err)
	}
	if created {
		m.opts.Logger.Printf("enrollment created id=%d user=%d course=%d", enrollment.ID, userID, courseID)
		publish(ctx, m.opts, events.FromEnrollment(events.TypeEnrollmentCreated, enrollment, enrollment.EnrolledAt))
		return InitiateResult{Status: OutcomeCreated, Enrollment: enrollment}, nil
	}

	existing, err := m.enrollments.GetEnrollment(ctx, userID, courseID)
	if err != nil {
		return InitiateResult{}, fmt.Errorf("initiate enrollment: %w", err)
	}
	if existing == nil {
		return InitiateResult{}, fmt.Errorf("initiate enrollment: conflicting row for user %d course %d not readable", userID, courseID)
	}
	m.opts.Logger.Printf("enrollment already exists id=%d user=%d course=%d status=%s", existing.ID, userID, courseID, existing.PaymentStatus)
	return InitiateResult{Status: OutcomeAlreadyExists, Enrollment: *existing}, nil
}

// GetEnrollmentState returns the user's enrollment for the course, or nil.
func (m *EnrollmentManager) GetEnrollmentState(ctx context.Context, userID, courseID uint) (*models.Enrollment, error) {
	if userID == 0 {
		return nil, nil
	}
	enrollment, err := m.enrollments.GetEnrollment(ctx, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("get enrollment state: %w", err)
	}
	return enrollment, nil
}
