package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/backend/events"
	"storefront/backend/models"
	"storefront/backend/payments"
	"storefront/backend/store"

	"github.com/google/uuid"
)

const defaultClaimTTL = time.Minute

// PaymentConfirmer is the only writer allowed to move an enrollment from
// pending to completed.
type PaymentConfirmer struct {
	courses     CourseStore
	enrollments EnrollmentStore
	processor   payments.Processor
	timeout     time.Duration
	opts        Options
}

func NewPaymentConfirmer(courses CourseStore, enrollments EnrollmentStore, processor payments.Processor, timeout time.Duration, opts Options) *PaymentConfirmer {
	return &PaymentConfirmer{
		courses:     courses,
		enrollments: enrollments,
		processor:   processor,
		timeout:     timeout,
		opts:        opts.withDefaults(),
	}
}

// ConfirmPayment applies a processor result to the (userID, courseID)
// enrollment. A repeated confirmation reports InvalidState/already_completed
// and leaves the stored row untouched.
func (p *PaymentConfirmer) ConfirmPayment(ctx context.Context, userID, courseID uint, result payments.Result) (models.Enrollment, error) {
	enrollment, err := p.confirm(ctx, userID, courseID, result)
	p.record(err)
	return enrollment, err
}

// Pay charges the course price through the processor and confirms the
// result. The processor is only called for a pending enrollment on which this
// call holds the charge claim, and the call is bounded by the configured
// timeout.
func (p *PaymentConfirmer) Pay(ctx context.Context, userID, courseID uint, token string) (models.Enrollment, error) {
	course, _, err := p.payable(ctx, userID, courseID)
	if err != nil {
		p.record(err)
		return models.Enrollment{}, err
	}

	claim := uuid.NewString()
	now := p.opts.Clock().UTC()
	claimed, err := p.enrollments.ClaimCharge(ctx, userID, courseID, claim, now, now.Add(-p.claimTTL()))
	if err != nil {
		err = fmt.Errorf("pay: %w", err)
		p.record(err)
		return models.Enrollment{}, err
	}
	if !claimed {
		err = &StateError{Reason: ReasonPaymentInProgress}
		p.record(err)
		return models.Enrollment{}, err
	}
	// A completed row no longer matches the release condition.
	defer p.release(ctx, userID, courseID, claim)

	chargeCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		chargeCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	result, err := p.processor.Charge(chargeCtx, payments.Charge{
		UserID:   userID,
		CourseID: courseID,
		Amount:   course.Price,
		Token:    token,
	})
	if err != nil {
		p.opts.Logger.Printf("payment processor error user=%d course=%d: %v", userID, courseID, err)
		err = &PaymentError{Reason: ReasonProcessorFailure, Detail: err.Error()}
		p.record(err)
		return models.Enrollment{}, err
	}

	return p.ConfirmPayment(ctx, userID, courseID, result)
}

// claimTTL is how long a charge claim blocks other attempts. It outlives the
// processor timeout so a claim is only taken over once its charge has ended.
func (p *PaymentConfirmer) claimTTL() time.Duration {
	if p.timeout > 0 {
		return 2 * p.timeout
	}
	return defaultClaimTTL
}

func (p *PaymentConfirmer) release(ctx context.Context, userID, courseID uint, claim string) {
	if err := p.enrollments.ReleaseCharge(context.WithoutCancel(ctx), userID, courseID, claim); err != nil {
		p.opts.Logger.Printf("release charge claim user=%d course=%d: %v", userID, courseID, err)
	}
}

func (p *PaymentConfirmer) record(err error) {
	if err != nil {
		p.opts.Recorder.PaymentOutcome(string(OutcomeOf(err)))
		return
	}
	p.opts.Recorder.PaymentOutcome(string(OutcomeCompleted))
}

// payable checks that the course exists and the user's enrollment is pending.
func (p *PaymentConfirmer) payable(ctx context.Context, userID, courseID uint) (*models.Course, *models.Enrollment, error) {
	if userID == 0 {
		return nil, nil, ErrUnauthenticated
	}

	course, err := p.courses.GetCourse(ctx, courseID)
	if err != nil {
		return nil, nil, fmt.Errorf("confirm payment: %w", err)
	}
	if course == nil {
		return nil, nil, fmt.Errorf("course %d: %w", courseID, ErrNotFound)
	}

	enrollment, err := p.enrollments.GetEnrollment(ctx, userID, courseID)
	if err != nil {
		return nil, nil, fmt.Errorf("confirm payment: %w", err)
	}
	if enrollment == nil {
		return nil, nil, &StateError{Reason: ReasonNotInitiated}
	}
	if enrollment.Completed() {
		return nil, nil, &StateError{Reason: ReasonAlreadyCompleted}
	}
	return course, enrollment, nil
}

func (p *PaymentConfirmer) confirm(ctx context.Context, userID, courseID uint, result payments.Result) (models.Enrollment, error) {
	course, enrollment, err := p.payable(ctx, userID, courseID)
	if err != nil {
		return models.Enrollment{}, err
	}

	switch {
	case !result.Success:
		p.opts.Logger.Printf("payment declined user=%d course=%d reason=%s", userID, courseID, result.DeclineReason)
		return *enrollment, &PaymentError{Reason: ReasonDeclined, Detail: result.DeclineReason}
	case result.CourseID != courseID:
		return *enrollment, &PaymentError{Reason: ReasonCourseMismatch, Detail: fmt.Sprintf("result for course %d", result.CourseID)}
	case !result.Amount.Equal(course.Price):
		return *enrollment, &PaymentError{Reason: ReasonAmountMismatch, Detail: fmt.Sprintf("paid %s, price %s", result.Amount, course.Price)}
	}

	completion := store.Completion{
		At:        p.opts.Clock().UTC(),
		Reference: result.TransactionID,
		Amount:    result.Amount,
	}
	updated, err := p.enrollments.CompletePending(ctx, userID, courseID, completion)
	if err != nil {
		return models.Enrollment{}, fmt.Errorf("confirm payment: %w", err)
	}

	current, err := p.enrollments.GetEnrollment(ctx, userID, courseID)
	if err != nil {
		return models.Enrollment{}, fmt.Errorf("confirm payment: %w", err)
	}
	if current == nil {
		return models.Enrollment{}, errors.New("confirm payment: enrollment disappeared")
	}
	if !updated {
		// Another confirmation won the conditional update.
		return *current, &StateError{Reason: ReasonAlreadyCompleted}
	}

	p.opts.Logger.Printf("payment confirmed id=%d user=%d course=%d ref=%s", current.ID, userID, courseID, current.PaymentReference)
	publish(ctx, p.opts, events.FromEnrollment(events.TypeEnrollmentCompleted, *current, completion.At))
	return *current, nil
}
