package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neovoice/escapebot/internal/domain"
)

// fakeProvider is a scripted PaymentProvider.
type fakeProvider struct {
	payments map[string]*ProviderPayment
	created  int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{payments: make(map[string]*ProviderPayment)}
}

func (f *fakeProvider) CreatePayment(ctx context.Context, req ProviderPaymentRequest) (*ProviderPayment, error) {
	f.created++
	id := fmt.Sprintf("pay-%d", f.created)
	p := &ProviderPayment{
		ID:              id,
		Status:          "pending",
		Amount:          req.Amount,
		Currency:        req.Currency,
		ConfirmationURL: "https://pay.example.com/" + id,
		Metadata:        req.Metadata,
	}
	f.payments[p.ID] = p
	return p, nil
}

func (f *fakeProvider) PaymentStatus(ctx context.Context, id string) (*ProviderPayment, error) {
	p, ok := f.payments[id]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	return p, nil
}

func (f *fakeProvider) markPaid(id string) {
	p := f.payments[id]
	p.Status = "succeeded"
	p.Paid = true
	now := time.Now().UTC()
	p.PaidAt = &now
}

func (f *fakeProvider) markCanceled(id string) {
	p := f.payments[id]
	p.Status = "canceled"
	p.Paid = false
}

func paymentFixture(t *testing.T) (*memStore, *fakeProvider, *recordingNotifier, *PaymentService, *domain.User) {
	t.Helper()
	store := newMemStore()
	catalog := testCatalog(t)
	provider := newFakeProvider()
	notifier := &recordingNotifier{}
	svc := NewPaymentService(store, provider, notifier, PaymentConfig{
		CourseName:  "The Language Escape",
		CoursePrice: 999,
		Currency:    "RUB",
		CourseDays:  10,
		ReturnURL:   "https://t.me",
	})

	users := NewUserService(store, catalog)
	user, _, err := users.FindOrCreate(context.Background(), 300, "Neo", "", "neo", "Europe/Moscow", false)
	require.NoError(t, err)
	return store, provider, notifier, svc, user
}

func TestCreateCoursePayment(t *testing.T) {
	ctx := context.Background()
	store, _, _, svc, user := paymentFixture(t)

	payment, url, err := svc.CreateCoursePayment(ctx, user)
	require.NoError(t, err)
	assert.NotEmpty(t, url)
	assert.Equal(t, domain.PaymentStatusPending, payment.Status)
	assert.True(t, payment.Amount.Equal(decimal.NewFromInt(999)))

	pending, err := store.ListPendingPayments(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestGrantAccessIfPaidGrantsOnce(t *testing.T) {
	ctx := context.Background()
	store, provider, notifier, svc, user := paymentFixture(t)

	payment, _, err := svc.CreateCoursePayment(ctx, user)
	require.NoError(t, err)
	provider.markPaid(payment.PaymentID)

	// Push and pull channels both deliver; only the first grants.
	out1, err := svc.GrantAccessIfPaid(ctx, payment.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeGranted, out1)

	out2, err := svc.GrantAccessIfPaid(ctx, payment.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyHadAccess, out2)

	after, err := store.UserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, after.HasAccess)
	assert.Equal(t, 1, after.CurrentDay)
	assert.NotNil(t, after.CourseStartedAt)

	record, err := store.PaymentByProviderID(ctx, payment.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusSucceeded, record.Status)

	// Exactly one success message despite two deliveries.
	assert.Equal(t, 1, notifier.count())
}

func TestGrantAccessIfPaidNotPaidYet(t *testing.T) {
	ctx := context.Background()
	store, _, _, svc, user := paymentFixture(t)

	payment, _, err := svc.CreateCoursePayment(ctx, user)
	require.NoError(t, err)

	out, err := svc.GrantAccessIfPaid(ctx, payment.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotPaid, out)

	after, err := store.UserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, after.HasAccess)
}

func TestGrantAccessIfPaidUnknownPayment(t *testing.T) {
	ctx := context.Background()
	_, _, _, svc, _ := paymentFixture(t)

	out, err := svc.GrantAccessIfPaid(ctx, "never-created")
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnknownPayment, out)
}

func TestGrantAccessIfPaidCanceled(t *testing.T) {
	ctx := context.Background()
	store, provider, _, svc, user := paymentFixture(t)

	payment, _, err := svc.CreateCoursePayment(ctx, user)
	require.NoError(t, err)
	provider.markCanceled(payment.PaymentID)

	out, err := svc.GrantAccessIfPaid(ctx, payment.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotPaid, out)

	record, err := store.PaymentByProviderID(ctx, payment.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCanceled, record.Status)

	// A duplicate cancel notification is a no-op.
	out, err = svc.GrantAccessIfPaid(ctx, payment.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotPaid, out)

	after, err := store.UserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, after.HasAccess)
}

func TestCheckPendingPaymentsPullChannel(t *testing.T) {
	ctx := context.Background()
	store, provider, _, svc, user := paymentFixture(t)

	// Two pendings; only the second actually went through.
	p1, _, err := svc.CreateCoursePayment(ctx, user)
	require.NoError(t, err)
	p2, _, err := svc.CreateCoursePayment(ctx, user)
	require.NoError(t, err)
	provider.markPaid(p2.PaymentID)

	out, err := svc.CheckPendingPayments(ctx, user.TelegramID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeGranted, out)

	after, err := store.UserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, after.HasAccess)

	// The unpaid one stays pending.
	r1, err := store.PaymentByProviderID(ctx, p1.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, r1.Status)
}
