// Package services holds the enrollment state machine, payment confirmation
// and the lecture access gate. Every operation takes the requester's user id
// resolved once per request; zero means no session.
package services

import (
	"context"
	"log"
	"time"

	"storefront/backend/events"
	"storefront/backend/models"
	"storefront/backend/store"
	"storefront/backend/utils"
)

type CourseStore interface {
	GetCourse(ctx context.Context, id uint) (*models.Course, error)
}

type CatalogStore interface {
	CourseStore
	GetCourses(ctx context.Context, ids []uint) ([]models.Course, error)
	ListCourses(ctx context.Context, level models.Level, page, pageSize int) ([]models.Course, int64, error)
	ListLectures(ctx context.Context, courseID uint, demoOnly bool) ([]models.Lecture, error)
}

type EnrollmentStore interface {
	InsertPending(ctx context.Context, enrollment *models.Enrollment) (bool, error)
	GetEnrollment(ctx context.Context, userID, courseID uint) (*models.Enrollment, error)
	CompletePending(ctx context.Context, userID, courseID uint, c store.Completion) (bool, error)
	ClaimCharge(ctx context.Context, userID, courseID uint, claim string, at, staleBefore time.Time) (bool, error)
	ReleaseCharge(ctx context.Context, userID, courseID uint, claim string) error
	ListCompleted(ctx context.Context, userID uint) ([]models.Enrollment, error)
}

// Recorder receives operation outcomes, typically for metrics.
type Recorder interface {
	EnrollmentOutcome(outcome string)
	PaymentOutcome(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) EnrollmentOutcome(string) {}
func (nopRecorder) PaymentOutcome(string)    {}

// Options carries the collaborators shared by every service. Zero values are
// replaced with no-op implementations.
type Options struct {
	Logger    *log.Logger
	Publisher events.Publisher
	Recorder  Recorder
	Clock     func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = utils.DiscardLogger()
	}
	if o.Publisher == nil {
		o.Publisher = events.Noop{}
	}
	if o.Recorder == nil {
		o.Recorder = nopRecorder{}
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

const publishTimeout = 5 * time.Second

// publish is best effort: the state change is already persisted.
func publish(ctx context.Context, o Options, event events.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := o.Publisher.Publish(ctx, event); err != nil {
		o.Logger.Printf("publish %s enrollment=%d failed: %v", event.Type, event.EnrollmentID, err)
	}
}
