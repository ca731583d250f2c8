package services_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"storefront/backend/events"
	"storefront/backend/models"
	"storefront/backend/payments"
	"storefront/backend/services"
	"storefront/backend/store"
	"storefront/backend/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, events.Event) error {
	return errors.New("broker down")
}
func (failingPublisher) Close() error { return nil }

type countingRecorder struct {
	mu          sync.Mutex
	enrollments map[string]int
	payments    map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{enrollments: map[string]int{}, payments: map[string]int{}}
}

func (r *countingRecorder) EnrollmentOutcome(o string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enrollments[o]++
}

func (r *countingRecorder) PaymentOutcome(o string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payments[o]++
}

type fixture struct {
	db        *gorm.DB
	store     *store.Store
	manager   *services.EnrollmentManager
	confirmer *services.PaymentConfirmer
	catalog   *services.CatalogReader
	publisher *recordingPublisher
	recorder  *countingRecorder
	course    models.Course
}

const (
	userU uint = 11
	userV uint = 12
)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	s := store.New(db)
	f := &fixture{
		db:        db,
		store:     s,
		publisher: &recordingPublisher{},
		recorder:  newCountingRecorder(),
		course:    testutil.SeedCourse(t, db, "Technical and Traditional Analysis", "3000", testutil.Lectures(5, 2)...),
	}
	opts := services.Options{Publisher: f.publisher, Recorder: f.recorder}
	f.manager = services.NewEnrollmentManager(s, s, opts)
	f.confirmer = services.NewPaymentConfirmer(s, s, payments.NewSimulated(0), time.Second, opts)
	f.catalog = services.NewCatalogReader(s, s, opts)
	return f
}

func (f *fixture) success() payments.Result {
	return payments.Result{Success: true, TransactionID: "txn_ok", CourseID: f.course.ID, Amount: decimal.NewFromInt(3000)}
}

func TestPurchaseScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.manager.InitiateEnrollment(ctx, userU, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, services.OutcomeCreated, first.Status)
	assert.Equal(t, models.PaymentPending, first.Enrollment.PaymentStatus)
	assert.Equal(t, "pay", first.Next())

	second, err := f.manager.InitiateEnrollment(ctx, userU, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, services.OutcomeAlreadyExists, second.Status)
	assert.Equal(t, models.PaymentPending, second.Enrollment.PaymentStatus)
	assert.Equal(t, first.Enrollment.ID, second.Enrollment.ID)

	confirmed, err := f.confirmer.ConfirmPayment(ctx, userU, f.course.ID, f.success())
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, confirmed.PaymentStatus)
	assert.Equal(t, "txn_ok", confirmed.PaymentReference)

	mine, err := f.catalog.ListMyCourses(ctx, userU)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, f.course.ID, mine[0].Course.ID)

	listing, err := f.catalog.ListVisibleLectures(ctx, userU, f.course.ID)
	require.NoError(t, err)
	assert.True(t, listing.Entitled)
	require.Len(t, listing.Lectures, 5)
	demos := 0
	for i, l := range listing.Lectures {
		if l.Demo {
			demos++
		}
		if i > 0 {
			assert.Less(t, listing.Lectures[i-1].OrderIndex, l.OrderIndex)
		}
	}
	assert.Equal(t, 2, demos)

	again, err := f.manager.InitiateEnrollment(ctx, userU, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, services.OutcomeAlreadyExists, again.Status)
	assert.Equal(t, "view_content", again.Next())

	assert.Equal(t, []string{events.TypeEnrollmentCreated, events.TypeEnrollmentCompleted}, f.publisher.types())
	assert.Equal(t, 1, f.recorder.enrollments["created"])
	assert.Equal(t, 2, f.recorder.enrollments["already_exists"])
	assert.Equal(t, 1, f.recorder.payments["completed"])
}

func TestInitiateEnrollmentPreconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.manager.InitiateEnrollment(ctx, 0, f.course.ID)
	assert.ErrorIs(t, err, services.ErrUnauthenticated)

	_, err = f.manager.InitiateEnrollment(ctx, userU, f.course.ID+100)
	assert.ErrorIs(t, err, services.ErrNotFound)
	assert.Equal(t, services.OutcomeNotFound, services.OutcomeOf(err))

	var n int64
	require.NoError(t, f.db.Model(&models.Enrollment{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestInitiateEnrollmentConcurrent(t *testing.T) {
	f := newFixture(t)

	const callers = 12
	results := make([]services.InitiateResult, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.manager.InitiateEnrollment(context.Background(), userU, f.course.ID)
		}(i)
	}
	wg.Wait()

	created := 0
	for i := range results {
		require.NoError(t, errs[i])
		if results[i].Status == services.OutcomeCreated {
			created++
		} else {
			assert.Equal(t, services.OutcomeAlreadyExists, results[i].Status)
		}
		assert.Equal(t, results[0].Enrollment.ID, results[i].Enrollment.ID)
	}
	assert.Equal(t, 1, created)

	var n int64
	require.NoError(t, f.db.Model(&models.Enrollment{}).Where("user_id = ?", userU).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestGetEnrollmentState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	state, err := f.manager.GetEnrollmentState(ctx, userU, f.course.ID)
	require.NoError(t, err)
	assert.Nil(t, state)

	_, err = f.manager.InitiateEnrollment(ctx, userU, f.course.ID)
	require.NoError(t, err)

	state, err = f.manager.GetEnrollmentState(ctx, userU, f.course.ID)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, models.PaymentPending, state.PaymentStatus)

	anonymous, err := f.manager.GetEnrollmentState(ctx, 0, f.course.ID)
	require.NoError(t, err)
	assert.Nil(t, anonymous)
}

func TestConfirmPaymentTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.manager.InitiateEnrollment(ctx, userU, f.course.ID)
	require.NoError(t, err)

	_, err = f.confirmer.ConfirmPayment(ctx, userU, f.course.ID, f.success())
	require.NoError(t, err)

	replay := f.success()
	replay.TransactionID = "txn_replayed"
	_, err = f.confirmer.ConfirmPayment(ctx, userU, f.course.ID, replay)
	assert.ErrorIs(t, err, services.ErrInvalidState)
	assert.Equal(t, services.ReasonAlreadyCompleted, services.ReasonOf(err))

	state, err := f.manager.GetEnrollmentState(ctx, userU, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, state.PaymentStatus)
	assert.Equal(t, "txn_ok", state.PaymentReference)
}

func TestConfirmPaymentConcurrent(t *testing.T) {
	f := newFixture(t)
	_, err := f.manager.InitiateEnrollment(context.Background(), userU, f.course.ID)
	require.NoError(t, err)

	const callers = 8
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res := f.success()
			res.TransactionID = fmt.Sprintf("txn_%d", i)
			_, errs[i] = f.confirmer.ConfirmPayment(context.Background(), userU, f.course.ID, res)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, services.ErrInvalidState)
	}
	assert.Equal(t, 1, ok)
	completed := 0
	for _, typ := range f.publisher.types() {
		if typ == events.TypeEnrollmentCompleted {
			completed++
		}
	}
	assert.Equal(t, 1, completed)
}

func TestConfirmPaymentFailureKeepsPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.manager.InitiateEnrollment(ctx, userU, f.course.ID)
	require.NoError(t, err)

	declined := payments.Result{Success: false, CourseID: f.course.ID, Amount: decimal.NewFromInt(3000), DeclineReason: "card_declined"}
	_, err = f.confirmer.ConfirmPayment(ctx, userU, f.course.ID, declined)
	assert.ErrorIs(t, err, services.ErrPaymentFailed)
	assert.Equal(t, services.ReasonDeclined, services.ReasonOf(err))

	state, err := f.manager.GetEnrollmentState(ctx, userU, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, state.PaymentStatus)

	mine, err := f.catalog.ListMyCourses(ctx, userU)
	require.NoError(t, err)
	assert.Empty(t, mine)

	// retry succeeds
	_, err = f.confirmer.ConfirmPayment(ctx, userU, f.course.ID, f.success())
	assert.NoError(t, err)
}

func TestConfirmPaymentRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.manager.InitiateEnrollment(ctx, userU, f.course.ID)
	require.NoError(t, err)

	wrongAmount := f.success()
	wrongAmount.Amount = decimal.NewFromInt(1)
	wrongCourse := f.success()
	wrongCourse.CourseID = f.course.ID + 1

	tests := []struct {
		name     string
		userID   uint
		courseID uint
		result   payments.Result
		target   error
		reason   string
	}{
		{"anonymous", 0, f.course.ID, f.success(), services.ErrUnauthenticated, ""},
		{"unknown course", userU, f.course.ID + 50, f.success(), services.ErrNotFound, ""},
		{"other user's enrollment", userV, f.course.ID, f.success(), services.ErrInvalidState, services.ReasonNotInitiated},
		{"amount mismatch", userU, f.course.ID, wrongAmount, services.ErrPaymentFailed, services.ReasonAmountMismatch},
		{"course mismatch", userU, f.course.ID, wrongCourse, services.ErrPaymentFailed, services.ReasonCourseMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.confirmer.ConfirmPayment(ctx, tt.userID, tt.courseID, tt.result)
			assert.ErrorIs(t, err, tt.target)
			assert.Equal(t, tt.reason, services.ReasonOf(err))
		})
	}

	state, err := f.manager.GetEnrollmentState(ctx, userU, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, state.PaymentStatus)
}

func TestPay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.confirmer.Pay(ctx, userU, f.course.ID, "tok_visa")
	assert.Equal(t, services.ReasonNotInitiated, services.ReasonOf(err))

	_, err = f.manager.InitiateEnrollment(ctx, userU, f.course.ID)
	require.NoError(t, err)

	_, err = f.confirmer.Pay(ctx, userU, f.course.ID, payments.DeclineToken)
	assert.ErrorIs(t, err, services.ErrPaymentFailed)

	enrollment, err := f.confirmer.Pay(ctx, userU, f.course.ID, "tok_visa")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, enrollment.PaymentStatus)
	assert.True(t, enrollment.AmountPaid.Decimal.Equal(decimal.NewFromInt(3000)))
	assert.NotEmpty(t, enrollment.PaymentReference)

	_, err = f.confirmer.Pay(ctx, userU, f.course.ID, "tok_visa")
	assert.Equal(t, services.ReasonAlreadyCompleted, services.ReasonOf(err))
}

func TestPayProcessorTimeout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	slow := services.NewPaymentConfirmer(f.store, f.store, payments.NewSimulated(time.Minute), 20*time.Millisecond, services.Options{})

	_, err := f.manager.InitiateEnrollment(ctx, userU, f.course.ID)
	require.NoError(t, err)

	_, err = slow.Pay(ctx, userU, f.course.ID, "tok_visa")
	assert.ErrorIs(t, err, services.ErrPaymentFailed)
	assert.Equal(t, services.ReasonProcessorFailure, services.ReasonOf(err))

	state, err := f.manager.GetEnrollmentState(ctx, userU, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, state.PaymentStatus)

	// The failed attempt released its claim, so a retry goes through.
	enrollment, err := f.confirmer.Pay(ctx, userU, f.course.ID, "tok_visa")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, enrollment.PaymentStatus)
}

type countingProcessor struct {
	next    payments.Processor
	mu      sync.Mutex
	charges int
}

func (p *countingProcessor) Charge(ctx context.Context, charge payments.Charge) (payments.Result, error) {
	p.mu.Lock()
	p.charges++
	p.mu.Unlock()
	return p.next.Charge(ctx, charge)
}

func TestPayConcurrentChargesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	processor := &countingProcessor{next: payments.NewSimulated(50 * time.Millisecond)}
	confirmer := services.NewPaymentConfirmer(f.store, f.store, processor, time.Second, services.Options{})

	_, err := f.manager.InitiateEnrollment(ctx, userU, f.course.ID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = confirmer.Pay(ctx, userU, f.course.ID, "tok_visa")
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, processor.charges)
	var ok, rejected int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, services.ErrInvalidState)
		rejected++
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, rejected)

	state, err := f.manager.GetEnrollmentState(ctx, userU, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, state.PaymentStatus)
	assert.Empty(t, state.ChargeClaim)
}

func TestListVisibleLecturesGate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.manager.InitiateEnrollment(ctx, userU, f.course.ID)
	require.NoError(t, err)

	for name, requester := range map[string]uint{"anonymous": 0, "never enrolled": userV, "pending": userU} {
		t.Run(name, func(t *testing.T) {
			listing, err := f.catalog.ListVisibleLectures(ctx, requester, f.course.ID)
			require.NoError(t, err)
			assert.False(t, listing.Entitled)
			require.Len(t, listing.Lectures, 2)
			for _, l := range listing.Lectures {
				assert.True(t, l.Demo)
			}
		})
	}

	_, err = f.catalog.ListVisibleLectures(ctx, userU, f.course.ID+9)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestListMyCoursesOrdering(t *testing.T) {
	db := testutil.NewDB(t)
	s := store.New(db)
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	older := testutil.SeedCourse(t, db, "Older", "2000")
	newer := testutil.SeedCourse(t, db, "Newer", "2000")
	pending := testutil.SeedCourse(t, db, "Pending", "2000")
	testutil.SeedEnrollment(t, db, userU, older.ID, models.PaymentCompleted, base)
	testutil.SeedEnrollment(t, db, userU, newer.ID, models.PaymentCompleted, base.Add(48*time.Hour))
	testutil.SeedEnrollment(t, db, userU, pending.ID, models.PaymentPending, base.Add(96*time.Hour))

	catalog := services.NewCatalogReader(s, s, services.Options{})
	mine, err := catalog.ListMyCourses(context.Background(), userU)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "Newer", mine[0].Course.Title)
	assert.Equal(t, "Older", mine[1].Course.Title)
	assert.True(t, mine[0].EnrolledAt.After(mine[1].EnrolledAt))

	_, err = catalog.ListMyCourses(context.Background(), 0)
	assert.ErrorIs(t, err, services.ErrUnauthenticated)
}

func TestPublishFailureDoesNotChangeOutcome(t *testing.T) {
	db := testutil.NewDB(t)
	s := store.New(db)
	course := testutil.SeedCourse(t, db, "Futures", "1200")
	manager := services.NewEnrollmentManager(s, s, services.Options{Publisher: failingPublisher{}})

	res, err := manager.InitiateEnrollment(context.Background(), userU, course.ID)
	require.NoError(t, err)
	assert.Equal(t, services.OutcomeCreated, res.Status)
}

func TestOutcomeOf(t *testing.T) {
	tests := []struct {
		err  error
		want services.Outcome
	}{
		{nil, ""},
		{services.ErrUnauthenticated, services.OutcomeUnauthenticated},
		{fmt.Errorf("course 1: %w", services.ErrNotFound), services.OutcomeNotFound},
		{&services.StateError{Reason: services.ReasonNotInitiated}, services.OutcomeInvalidState},
		{&services.PaymentError{Reason: services.ReasonDeclined}, services.OutcomePaymentFailed},
		{errors.New("db gone"), services.OutcomeInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, services.OutcomeOf(tt.err))
	}
}
