package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/subvault/subscription-portal/internal/model"
)

// memStore is an in-memory SubscriptionStore. Get returns a copy so a
// transition that fails mid-way cannot leak partial state back into the
// "durable" map, mirroring how the SQL store behaves.
type memStore struct {
	nextID   uint64
	subs     map[uint64]model.Subscription
	archived []model.DeletedSubscription
	failNext error
}

func newMemStore() *memStore {
	return &memStore{nextID: 1, subs: map[uint64]model.Subscription{}}
}

func (m *memStore) Get(_ context.Context, id uint64) (*model.Subscription, error) {
	s, ok := m.subs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := s
	return &cp, nil
}

func (m *memStore) Create(_ context.Context, s *model.Subscription) error {
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return err
	}
	s.ID = m.nextID
	m.nextID++
	s.Version = 1
	m.subs[s.ID] = *s
	return nil
}

func (m *memStore) Update(_ context.Context, s *model.Subscription) error {
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return err
	}
	cur, ok := m.subs[s.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Version != s.Version {
		return ErrVersionConflict
	}
	s.Version++
	m.subs[s.ID] = *s
	return nil
}

func (m *memStore) Archive(_ context.Context, d *model.DeletedSubscription) error {
	if _, ok := m.subs[d.Subscription.ID]; !ok {
		return ErrNotFound
	}
	delete(m.subs, d.Subscription.ID)
	m.archived = append(m.archived, *d)
	return nil
}

// memDirectory serves a fixed set of users.
type memDirectory struct {
	users []model.User
}

func (d *memDirectory) UserByID(_ context.Context, id uint64) (*model.User, error) {
	for _, u := range d.users {
		if u.ID == id {
			cp := u
			return &cp, nil
		}
	}
	return nil, nil
}

func (d *memDirectory) HODForDepartment(_ context.Context, dept string) (*model.User, error) {
	for _, u := range d.users {
		if u.IsHOD && u.Department == dept {
			cp := u
			return &cp, nil
		}
	}
	return nil, nil
}

func (d *memDirectory) FinanceUsers(_ context.Context, subRole string) ([]model.User, error) {
	var out []model.User
	for _, u := range d.users {
		if u.Role == model.RoleFinance && u.SubRole == subRole {
			out = append(out, u)
		}
	}
	return out, nil
}

// recordingNotifier captures every notification in order.
type recordingNotifier struct {
	sent []sentNote
}

type sentNote struct {
	userID  uint64
	message string
}

func (n *recordingNotifier) Notify(_ context.Context, userID uint64, message string) {
	n.sent = append(n.sent, sentNote{userID, message})
}

func (n *recordingNotifier) countFor(userID uint64) int {
	c := 0
	for _, s := range n.sent {
		if s.userID == userID {
			c++
		}
	}
	return c
}

// Fixture users shared across tests.
var (
	requester = model.User{ID: 1, Name: "Ravi", Role: model.RoleEmployee, Department: "Engineering"}
	alice     = model.User{ID: 2, Name: "Alice", Role: model.RoleHOD, Department: "Engineering", IsHOD: true}
	apa1      = model.User{ID: 3, Name: "Priya", Role: model.RoleFinance, SubRole: model.SubRoleAPA}
	apa2      = model.User{ID: 4, Name: "Dev", Role: model.RoleFinance, SubRole: model.SubRoleAPA}
	am1       = model.User{ID: 5, Name: "Meera", Role: model.RoleFinance, SubRole: model.SubRoleAM}
	admin     = model.User{ID: 6, Name: "Root", Role: model.RoleAdmin}
	salesEmp  = model.User{ID: 7, Name: "Sam", Role: model.RoleEmployee, Department: "Sales"}
)

func testEngine() (*Engine, *memStore, *recordingNotifier) {
	store := newMemStore()
	dir := &memDirectory{users: []model.User{requester, alice, apa1, apa2, am1, admin, salesEmp}}
	notes := &recordingNotifier{}
	e := NewEngine(store, dir, notes, nil)
	e.now = func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }
	return e, store, notes
}

func submitFigma(t *testing.T, e *Engine) *model.Subscription {
	t.Helper()
	s, err := e.SubmitRequest(context.Background(), requester, RequestInput{
		ToolName:       "Figma",
		Vendor:         "Figma Inc",
		Department:     "Engineering",
		AmountCents:    12000,
		Currency:       "INR",
		DurationMonths: 1,
	})
	if err != nil {
		t.Fatalf("SubmitRequest: %v", err)
	}
	return s
}

func TestSubmitRequestCreatesPending(t *testing.T) {
	e, store, notes := testEngine()
	s := submitFigma(t, e)

	if s.Status != model.StatusPending {
		t.Errorf("status = %q, want Pending", s.Status)
	}
	if s.HODID != alice.ID {
		t.Errorf("hod = %d, want %d", s.HODID, alice.ID)
	}
	if s.CostCents != 12000 || s.ConversionRate != 1 || s.EnteredCurrency != "INR" {
		t.Errorf("cost normalization wrong: %d @ %v %s", s.CostCents, s.ConversionRate, s.EnteredCurrency)
	}
	if _, ok := store.subs[s.ID]; !ok {
		t.Fatal("subscription not persisted")
	}
	if notes.countFor(requester.ID) != 1 || notes.countFor(alice.ID) != 1 {
		t.Errorf("expected one notification each for requester and HOD, got %v", notes.sent)
	}
}

func TestSubmitRequestConvertsCurrency(t *testing.T) {
	e, _, _ := testEngine()
	s, err := e.SubmitRequest(context.Background(), requester, RequestInput{
		ToolName:       "Miro",
		Department:     "Engineering",
		AmountCents:    1000, // 10.00 USD
		Currency:       "usd",
		DurationMonths: 12,
	})
	if err != nil {
		t.Fatalf("SubmitRequest: %v", err)
	}
	if s.CostCents != 83500 {
		t.Errorf("converted cost = %d, want 83500", s.CostCents)
	}
	if s.EnteredAmountCents != 1000 || s.EnteredCurrency != "USD" || s.ConversionRate != 83.50 {
		t.Errorf("original amount not preserved: %+v", s)
	}
}

func TestSubmitRequestRejectsUnknownCurrency(t *testing.T) {
	e, store, _ := testEngine()
	_, err := e.SubmitRequest(context.Background(), requester, RequestInput{
		ToolName:       "Miro",
		Department:     "Engineering",
		AmountCents:    1000,
		Currency:       "XYZ",
		DurationMonths: 1,
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if len(store.subs) != 0 {
		t.Error("subscription created despite validation failure")
	}
}

func TestSubmitRequestNoHODRejectsBeforeMutation(t *testing.T) {
	e, store, notes := testEngine()
	_, err := e.SubmitRequest(context.Background(), salesEmp, RequestInput{
		ToolName:       "HubSpot",
		Department:     "Sales", // no HOD flagged for Sales
		AmountCents:    5000,
		DurationMonths: 1,
	})
	if !errors.Is(err, ErrNoHOD) {
		t.Fatalf("err = %v, want ErrNoHOD", err)
	}
	if len(store.subs) != 0 {
		t.Error("subscription created despite missing HOD")
	}
	if len(notes.sent) != 0 {
		t.Error("notifications sent despite rejection")
	}
}

func TestFullApprovalChain(t *testing.T) {
	e, _, notes := testEngine()
	ctx := context.Background()
	s := submitFigma(t, e)

	s, err := e.Decide(ctx, alice, s.ID, model.StatusApproved, "approved for Q1 budget")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if s.Status != model.StatusApproved {
		t.Errorf("status = %q, want Approved", s.Status)
	}
	if s.ApprovedBy == nil || *s.ApprovedBy != alice.ID || s.ApprovalDate == nil {
		t.Error("approver not recorded")
	}
	if s.Remarks != "HOD Note: approved for Q1 budget" {
		t.Errorf("remarks = %q", s.Remarks)
	}
	// Fan-out: both APA users notified on approval.
	if notes.countFor(apa1.ID) != 1 || notes.countFor(apa2.ID) != 1 {
		t.Errorf("APA fan-out wrong: %v", notes.sent)
	}

	s, err = e.ForwardToAM(ctx, apa1, s.ID)
	if err != nil {
		t.Fatalf("ForwardToAM: %v", err)
	}
	if s.Status != model.StatusForwardedToAM {
		t.Errorf("status = %q, want ForwardedToAM", s.Status)
	}
	if s.Finance.APAApproverID == nil || *s.Finance.APAApproverID != apa1.ID || s.Finance.QueueAddedAt == nil {
		t.Error("APA forward not recorded in finance record")
	}
	if notes.countFor(am1.ID) != 1 {
		t.Errorf("AM not notified on forward: %v", notes.sent)
	}

	s, err = e.SubmitAMLog(ctx, am1, s.ID, AMLogInput{
		Note:               "verified vendor invoice",
		RecommendedPayment: "corporate card",
		PlannedAmountCents: 12000,
		PlannedCurrency:    "INR",
	})
	if err != nil {
		t.Fatalf("SubmitAMLog: %v", err)
	}
	if s.Status != model.StatusVerifiedByAM {
		t.Errorf("status = %q, want VerifiedByAM", s.Status)
	}
	if s.Finance.AMLog == nil || s.Finance.AMLog.SubmittedBy != am1.ID {
		t.Error("AM log not recorded")
	}

	s, err = e.MarkAsPaid(ctx, apa1, s.ID, ExecutionInput{
		PaymentType:     "corporate card",
		TransactionID:   "TX1",
		AmountPaidCents: 12000,
		Currency:        "INR",
	})
	if err != nil {
		t.Fatalf("MarkAsPaid: %v", err)
	}
	if s.Status != model.StatusPaymentCompleted {
		t.Errorf("status = %q, want PaymentCompleted", s.Status)
	}
	wantExpiry := s.RequestDate.AddDate(0, 1, 0)
	if s.ExpiryDate == nil || !s.ExpiryDate.Equal(wantExpiry) {
		t.Errorf("expiry = %v, want %v", s.ExpiryDate, wantExpiry)
	}
	if s.TransactionID != "TX1" || s.PaymentMode != "corporate card" {
		t.Error("legacy payment mirrors not set")
	}
	// Requester and HOD each notified once more at payment.
	if notes.countFor(requester.ID) != 3 { // submit + approval + payment
		t.Errorf("requester notifications = %d, want 3", notes.countFor(requester.ID))
	}
	if notes.countFor(alice.ID) != 2 { // submit + payment
		t.Errorf("HOD notifications = %d, want 2", notes.countFor(alice.ID))
	}
}

func TestDecideAuthorization(t *testing.T) {
	e, _, _ := testEngine()
	ctx := context.Background()
	s := submitFigma(t, e)

	// Only the assigned HOD may approve a Pending request.
	if _, err := e.Decide(ctx, apa1, s.ID, model.StatusApproved, ""); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("APA approve err = %v, want ErrAccessDenied", err)
	}
	if _, err := e.Decide(ctx, requester, s.ID, model.StatusDeclined, "no"); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("requester decline err = %v, want ErrAccessDenied", err)
	}
}

func TestDeclineByHODFromPending(t *testing.T) {
	e, _, _ := testEngine()
	s := submitFigma(t, e)
	s, err := e.Decide(context.Background(), alice, s.ID, model.StatusDeclined, "duplicate of existing license")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if s.Status != model.StatusDeclined {
		t.Errorf("status = %q, want Declined", s.Status)
	}
	if s.DeclinedByRole != model.DeclinedByHOD {
		t.Errorf("declinedByRole = %q, want hod", s.DeclinedByRole)
	}
	if s.DeclineReason != "duplicate of existing license" {
		t.Errorf("reason = %q", s.DeclineReason)
	}
	if strings.Contains(s.Remarks, "Declined") {
		t.Errorf("decline leaked into remarks: %q", s.Remarks)
	}
}

func TestDeclineByFinanceFromApproved(t *testing.T) {
	e, _, _ := testEngine()
	ctx := context.Background()
	s := submitFigma(t, e)
	if _, err := e.Decide(ctx, alice, s.ID, model.StatusApproved, "ok"); err != nil {
		t.Fatalf("approve: %v", err)
	}

	// The HOD cannot decline an already-approved request; an APA can.
	if _, err := e.Decide(ctx, alice, s.ID, model.StatusDeclined, "changed my mind"); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("HOD decline from Approved err = %v, want ErrAccessDenied", err)
	}
	s, err := e.Decide(ctx, apa1, s.ID, model.StatusDeclined, "over budget")
	if err != nil {
		t.Fatalf("APA decline: %v", err)
	}
	if s.DeclinedByRole != model.DeclinedByFinanceAPA {
		t.Errorf("declinedByRole = %q, want finance_apa", s.DeclinedByRole)
	}
}

func TestDeclinedIsAbsorbing(t *testing.T) {
	e, _, _ := testEngine()
	ctx := context.Background()
	s := submitFigma(t, e)
	if _, err := e.Decide(ctx, alice, s.ID, model.StatusDeclined, "no"); err != nil {
		t.Fatalf("decline: %v", err)
	}

	if _, err := e.Decide(ctx, alice, s.ID, model.StatusApproved, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("approve after decline err = %v", err)
	}
	if _, err := e.ForwardToAM(ctx, apa1, s.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("forward after decline err = %v", err)
	}
	if _, err := e.SubmitAMLog(ctx, am1, s.ID, AMLogInput{PlannedAmountCents: 1}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("amlog after decline err = %v", err)
	}
	if _, err := e.MarkAsPaid(ctx, apa1, s.ID, ExecutionInput{AmountPaidCents: 1}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("markAsPaid after decline err = %v", err)
	}

	// Renew is the single way out of Declined.
	s, err := e.Renew(ctx, requester, s.ID, RenewInput{DurationMonths: 2, AmountCents: 12000, Currency: "INR"})
	if err != nil {
		t.Fatalf("renew after decline: %v", err)
	}
	if s.Status != model.StatusPending {
		t.Errorf("status after renew = %q, want Pending", s.Status)
	}
	if s.DeclinedByRole != "" || s.DeclineReason != "" {
		t.Error("decline fields not cleared by renew")
	}
}

func TestMarkAsPaidOnlyFromVerified(t *testing.T) {
	e, _, _ := testEngine()
	ctx := context.Background()
	s := submitFigma(t, e)
	exec := ExecutionInput{PaymentType: "card", AmountPaidCents: 12000}

	for _, step := range []func() error{
		func() error { _, err := e.MarkAsPaid(ctx, apa1, s.ID, exec); return err }, // Pending
		func() error {
			if _, err := e.Decide(ctx, alice, s.ID, model.StatusApproved, ""); err != nil {
				return fmt.Errorf("setup: %w", err)
			}
			_, err := e.MarkAsPaid(ctx, apa1, s.ID, exec) // Approved
			return err
		},
		func() error {
			if _, err := e.ForwardToAM(ctx, apa1, s.ID); err != nil {
				return fmt.Errorf("setup: %w", err)
			}
			_, err := e.MarkAsPaid(ctx, apa1, s.ID, exec) // ForwardedToAM
			return err
		},
	} {
		if err := step(); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("markAsPaid err = %v, want ErrInvalidTransition", err)
		}
	}
}

func TestFinanceSubRoleGuards(t *testing.T) {
	e, _, _ := testEngine()
	ctx := context.Background()
	s := submitFigma(t, e)
	if _, err := e.Decide(ctx, alice, s.ID, model.StatusApproved, ""); err != nil {
		t.Fatalf("approve: %v", err)
	}

	// An AM cannot forward; forwarding is the APA's job.
	if _, err := e.ForwardToAM(ctx, am1, s.ID); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("AM forward err = %v, want ErrAccessDenied", err)
	}
	if _, err := e.ForwardToAM(ctx, apa1, s.ID); err != nil {
		t.Fatalf("forward: %v", err)
	}
	// And an APA cannot verify its own forwarded payment.
	if _, err := e.SubmitAMLog(ctx, apa1, s.ID, AMLogInput{PlannedAmountCents: 1}); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("APA amlog err = %v, want ErrAccessDenied", err)
	}
	if _, err := e.SubmitAMLog(ctx, am1, s.ID, AMLogInput{PlannedAmountCents: 12000}); err != nil {
		t.Fatalf("amlog: %v", err)
	}
	// The AM cannot execute the payment it just verified.
	if _, err := e.MarkAsPaid(ctx, am1, s.ID, ExecutionInput{AmountPaidCents: 12000}); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("AM markAsPaid err = %v, want ErrAccessDenied", err)
	}
}

func TestRenewClearsPriorCycle(t *testing.T) {
	e, _, _ := testEngine()
	ctx := context.Background()
	s := runToPaid(t, e)

	s, err := e.Renew(ctx, requester, s.ID, RenewInput{DurationMonths: 3, AmountCents: 30000, Currency: "INR", Remarks: "next quarter"})
	if err != nil {
		t.Fatalf("Renew: %v", err)
	}
	if s.Status != model.StatusPending {
		t.Errorf("status = %q, want Pending", s.Status)
	}
	if s.ApprovedBy != nil || s.ApprovalDate != nil {
		t.Error("approval fields survived renewal")
	}
	if !s.Finance.Empty() {
		t.Errorf("finance record survived renewal: %+v", s.Finance)
	}
	if s.ExpiryDate != nil || s.LastAlertAt != nil {
		t.Error("expiry/alert state survived renewal")
	}
	if s.PaymentMode != "" || s.TransactionID != "" || s.InvoiceNumber != "" {
		t.Error("legacy payment mirrors survived renewal")
	}
	if s.DurationMonths != 3 || s.CostCents != 30000 {
		t.Error("renewal fields not applied")
	}
	if s.RenewalDate == nil {
		t.Error("renewal date not set")
	}
}

func TestRenewRequiresCurrentHOD(t *testing.T) {
	e, store, _ := testEngine()
	s := submitFigma(t, e)

	// Alice leaves: no HOD for Engineering anymore.
	e.dir = &memDirectory{users: []model.User{requester, apa1, am1}}
	before := store.subs[s.ID]
	_, err := e.Renew(context.Background(), requester, s.ID, RenewInput{DurationMonths: 1, AmountCents: 12000})
	if !errors.Is(err, ErrNoHOD) {
		t.Fatalf("err = %v, want ErrNoHOD", err)
	}
	if after := store.subs[s.ID]; after.Version != before.Version {
		t.Error("subscription mutated despite missing HOD")
	}
}

func TestRenewAuthorization(t *testing.T) {
	e, _, _ := testEngine()
	s := submitFigma(t, e)
	if _, err := e.Renew(context.Background(), salesEmp, s.ID, RenewInput{DurationMonths: 1, AmountCents: 100}); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("foreign-department renew err = %v, want ErrAccessDenied", err)
	}
}

func TestTriggerRenewalAlertIdempotentPerDay(t *testing.T) {
	e, _, _ := testEngine()
	ctx := context.Background()
	s := runToPaid(t, e)

	// Move the clock to three days before expiry (alert window is 7).
	e.now = func() time.Time { return s.ExpiryDate.AddDate(0, 0, -3) }

	s1, triggered, err := e.TriggerRenewalAlert(ctx, s.ID)
	if err != nil || !triggered {
		t.Fatalf("first trigger = (%v, %v)", triggered, err)
	}
	s2, triggered, err := e.TriggerRenewalAlert(ctx, s.ID)
	if err != nil {
		t.Fatalf("second trigger: %v", err)
	}
	if triggered {
		t.Error("second same-day trigger reported as fired")
	}
	if !s1.LastAlertAt.Equal(*s2.LastAlertAt) {
		t.Errorf("lastAlertAt changed on repeat: %v vs %v", s1.LastAlertAt, s2.LastAlertAt)
	}

	// Next day it fires again.
	e.now = func() time.Time { return s.ExpiryDate.AddDate(0, 0, -2) }
	if _, triggered, err = e.TriggerRenewalAlert(ctx, s.ID); err != nil || !triggered {
		t.Errorf("next-day trigger = (%v, %v)", triggered, err)
	}
}

func TestTriggerRenewalAlertOutsideWindow(t *testing.T) {
	e, _, _ := testEngine()
	s := runToPaid(t, e)
	// 20 days out with a 7-day window: not eligible yet.
	e.now = func() time.Time { return s.ExpiryDate.AddDate(0, 0, -20) }
	if _, _, err := e.TriggerRenewalAlert(context.Background(), s.ID); !errors.Is(err, ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestTriggerRenewalAlertAfterExpiry(t *testing.T) {
	e, _, _ := testEngine()
	s := runToPaid(t, e)
	e.now = func() time.Time { return s.ExpiryDate.AddDate(0, 0, 5) }
	if _, triggered, err := e.TriggerRenewalAlert(context.Background(), s.ID); err != nil || !triggered {
		t.Errorf("post-expiry trigger = (%v, %v)", triggered, err)
	}
}

func TestSyncLifecycle(t *testing.T) {
	e, _, _ := testEngine()
	ctx := context.Background()
	s := runToPaid(t, e)

	s, err := e.SyncLifecycle(ctx, s)
	if err != nil {
		t.Fatalf("SyncLifecycle: %v", err)
	}
	if s.Status != model.StatusActive {
		t.Errorf("status = %q, want Active", s.Status)
	}

	e.now = func() time.Time { return s.ExpiryDate.AddDate(0, 0, 1) }
	s, err = e.SyncLifecycle(ctx, s)
	if err != nil {
		t.Fatalf("SyncLifecycle: %v", err)
	}
	if s.Status != model.StatusExpired {
		t.Errorf("status = %q, want Expired", s.Status)
	}
}

func TestUpdateContinuation(t *testing.T) {
	e, _, notes := testEngine()
	ctx := context.Background()
	s := runToPaid(t, e)
	now := e.now()
	month := MonthKey(now)

	sent := len(notes.sent)
	s, err := e.UpdateContinuation(ctx, requester, s.ID, month, model.ContinuationContinued)
	if err != nil {
		t.Fatalf("UpdateContinuation: %v", err)
	}
	if s.MonthlyContinuation[month] != model.ContinuationContinued {
		t.Errorf("continuation map = %v", s.MonthlyContinuation)
	}
	// "continued" synthesizes a one-month renewal in the same write.
	if s.Status != model.StatusPending {
		t.Errorf("status = %q, want Pending", s.Status)
	}
	if s.DurationMonths != 1 {
		t.Errorf("duration = %d, want 1", s.DurationMonths)
	}
	if !s.Finance.Empty() {
		t.Error("finance record survived synthesized renewal")
	}
	if len(notes.sent) != sent+2 {
		t.Errorf("expected requester+HOD notifications, got %d new", len(notes.sent)-sent)
	}

	// The month is already decided: a second decision is rejected.
	if _, err := e.UpdateContinuation(ctx, requester, s.ID, month, model.ContinuationDeclined); !errors.Is(err, ErrInvalidTransition) && !errors.Is(err, ErrValidation) {
		t.Errorf("repeat decision err = %v", err)
	}
}

func TestUpdateContinuationDeclinedKeepsActive(t *testing.T) {
	e, _, _ := testEngine()
	ctx := context.Background()
	s := runToPaid(t, e)
	month := MonthKey(e.now())

	s, err := e.UpdateContinuation(ctx, requester, s.ID, month, model.ContinuationDeclined)
	if err != nil {
		t.Fatalf("UpdateContinuation: %v", err)
	}
	if s.Status != model.StatusActive {
		t.Errorf("status = %q, want Active", s.Status)
	}
	if s.MonthlyContinuation[month] != model.ContinuationDeclined {
		t.Errorf("continuation map = %v", s.MonthlyContinuation)
	}
}

func TestUpdateContinuationClosedWindow(t *testing.T) {
	e, _, _ := testEngine()
	s := runToPaid(t, e)
	if _, err := e.UpdateContinuation(context.Background(), requester, s.ID, "2020-01", model.ContinuationContinued); !errors.Is(err, ErrValidation) {
		t.Errorf("stale month err = %v, want ErrValidation", err)
	}
}

func TestAdminDelete(t *testing.T) {
	e, store, _ := testEngine()
	ctx := context.Background()
	s := submitFigma(t, e)

	if err := e.AdminDelete(ctx, requester, s.ID, "cleanup"); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("non-admin delete err = %v, want ErrAccessDenied", err)
	}
	if err := e.AdminDelete(ctx, admin, s.ID, "  "); !errors.Is(err, ErrValidation) {
		t.Errorf("empty justification err = %v, want ErrValidation", err)
	}
	if err := e.AdminDelete(ctx, admin, s.ID, "requested by vendor offboarding"); err != nil {
		t.Fatalf("AdminDelete: %v", err)
	}
	if _, ok := store.subs[s.ID]; ok {
		t.Error("subscription row survived deletion")
	}
	if len(store.archived) != 1 {
		t.Fatalf("archived = %d, want 1", len(store.archived))
	}
	d := store.archived[0]
	if d.Subscription.ID != s.ID || d.DeletedBy != admin.ID || d.Justification == "" {
		t.Errorf("archive record incomplete: %+v", d)
	}
}

func TestStatusAlwaysDefined(t *testing.T) {
	e, store, _ := testEngine()
	ctx := context.Background()
	valid := map[string]bool{
		model.StatusPending: true, model.StatusApproved: true, model.StatusForwardedToAM: true,
		model.StatusVerifiedByAM: true, model.StatusPaymentCompleted: true, model.StatusActive: true,
		model.StatusExpired: true, model.StatusDeclined: true,
	}
	s := runToPaid(t, e)
	if _, err := e.SyncLifecycle(ctx, mustGet(t, store, s.ID)); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Renew(ctx, requester, s.ID, RenewInput{DurationMonths: 2, AmountCents: 100}); err != nil {
		t.Fatal(err)
	}
	for id, sub := range store.subs {
		if !valid[sub.Status] {
			t.Errorf("subscription %d has undefined status %q", id, sub.Status)
		}
	}
}

func TestWriteFailureLeavesNoPartialState(t *testing.T) {
	e, store, notes := testEngine()
	ctx := context.Background()
	s := submitFigma(t, e)
	sent := len(notes.sent)

	store.failNext = ErrVersionConflict
	if _, err := e.Decide(ctx, alice, s.ID, model.StatusApproved, "ok"); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("err = %v, want ErrVersionConflict", err)
	}
	if got := store.subs[s.ID]; got.Status != model.StatusPending {
		t.Errorf("durable status = %q, want Pending", got.Status)
	}
	if len(notes.sent) != sent {
		t.Error("notifications sent for a failed write")
	}
}

// runToPaid drives a fresh Figma request through the full chain and
// returns it in PaymentCompleted.
func runToPaid(t *testing.T, e *Engine) *model.Subscription {
	t.Helper()
	ctx := context.Background()
	s := submitFigma(t, e)
	var err error
	if _, err = e.Decide(ctx, alice, s.ID, model.StatusApproved, "ok"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err = e.ForwardToAM(ctx, apa1, s.ID); err != nil {
		t.Fatalf("forward: %v", err)
	}
	if _, err = e.SubmitAMLog(ctx, am1, s.ID, AMLogInput{PlannedAmountCents: 12000, PlannedCurrency: "INR"}); err != nil {
		t.Fatalf("amlog: %v", err)
	}
	s, err = e.MarkAsPaid(ctx, apa1, s.ID, ExecutionInput{PaymentType: "card", TransactionID: "TX1", AmountPaidCents: 12000, Currency: "INR"})
	if err != nil {
		t.Fatalf("markAsPaid: %v", err)
	}
	return s
}

func mustGet(t *testing.T, store *memStore, id uint64) *model.Subscription {
	t.Helper()
	s, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get %d: %v", id, err)
	}
	return s
}
