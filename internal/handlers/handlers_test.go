package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"workfit-event-service-golang/internal/consumer"
	"workfit-event-service-golang/internal/events"
	"workfit-event-service-golang/internal/store"
)

func delivery(t *testing.T, ev interface{}) consumer.Delivery {
	t.Helper()
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return consumer.Delivery{Topic: "test", Value: data}
}

// ---- password change ----

type fakeCredentials struct {
	hashes map[string]string
	calls  int
	err    error
}

func (f *fakeCredentials) UpdatePasswordHash(_ context.Context, userID, hash string, _ time.Time) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	if _, ok := f.hashes[userID]; !ok {
		return false, nil
	}
	f.hashes[userID] = hash
	return true, nil
}

func passwordEvent(userID, hash string) events.PasswordChangeEvent {
	return events.PasswordChangeEvent{
		Header: events.Header{EventID: "pw-1", EventType: events.TypePasswordChanged, Timestamp: time.Now().UTC()},
		PasswordData: events.PasswordData{
			UserID:            userID,
			Username:          "alice",
			NewPasswordHash:   hash,
			PasswordChangedAt: time.Now().UTC(),
		},
	}
}

func TestPasswordChangeReplayConverges(t *testing.T) {
	creds := &fakeCredentials{hashes: map[string]string{"u1": "old"}}
	h := PasswordChange(creds, nil)

	d := delivery(t, passwordEvent("u1", "new-hash"))
	for i := 0; i < 2; i++ {
		if err := h(context.Background(), d); err != nil {
			t.Fatalf("replay %d should succeed: %v", i+1, err)
		}
	}
	if creds.hashes["u1"] != "new-hash" {
		t.Fatalf("hash not synced: %q", creds.hashes["u1"])
	}
	if creds.calls != 2 {
		t.Fatalf("overwrite-with-latest applies every delivery, got %d calls", creds.calls)
	}
}

func TestPasswordChangeUnknownUserIsTerminal(t *testing.T) {
	h := PasswordChange(&fakeCredentials{hashes: map[string]string{}}, nil)
	err := h(context.Background(), delivery(t, passwordEvent("ghost", "h")))
	if !consumer.IsFatal(err) {
		t.Fatalf("missing user must be terminal, got %v", err)
	}
}

func TestPasswordChangeStoreErrorRetries(t *testing.T) {
	h := PasswordChange(&fakeCredentials{err: errors.New("db down")}, nil)
	err := h(context.Background(), delivery(t, passwordEvent("u1", "h")))
	if err == nil || consumer.IsFatal(err) {
		t.Fatalf("store outage must stay retryable, got %v", err)
	}
}

func TestPasswordChangeMalformedPayload(t *testing.T) {
	h := PasswordChange(&fakeCredentials{}, nil)
	err := h(context.Background(), consumer.Delivery{Value: []byte("{broken")})
	if !consumer.IsFatal(err) {
		t.Fatalf("malformed payload must be terminal, got %v", err)
	}
}

func TestPasswordChangeWrongTypeSkipped(t *testing.T) {
	creds := &fakeCredentials{hashes: map[string]string{"u1": "old"}}
	h := PasswordChange(creds, nil)

	ev := passwordEvent("u1", "new")
	ev.EventType = "SOMETHING_ELSE"
	if err := h(context.Background(), delivery(t, ev)); err != nil {
		t.Fatalf("unknown type should be skipped, got %v", err)
	}
	if creds.calls != 0 {
		t.Fatalf("skipped event must not touch the store")
	}
}

// ---- user registration ----

type fakeDirectory struct {
	byEmail  map[string]events.UserData
	statuses map[string]string
	inserts  int
}

func (f *fakeDirectory) ExistsByEmail(_ context.Context, email string) (bool, error) {
	_, ok := f.byEmail[email]
	return ok, nil
}

func (f *fakeDirectory) CreateFromRegistration(_ context.Context, data events.UserData) error {
	f.inserts++
	f.byEmail[data.Email] = data
	return nil
}

func (f *fakeDirectory) UpdateStatus(_ context.Context, email, status string) (bool, error) {
	if _, ok := f.byEmail[email]; !ok {
		return false, nil
	}
	f.statuses[email] = status
	return true, nil
}

func registrationEvent(email string) events.UserRegistrationEvent {
	return events.UserRegistrationEvent{
		Header: events.Header{EventID: "reg-1", EventType: events.TypeUserRegistered},
		UserData: events.UserData{
			UserID: "u1",
			Email:  email,
			Role:   "CANDIDATE",
		},
	}
}

func TestUserRegistrationDuplicateSkipsInsert(t *testing.T) {
	dir := &fakeDirectory{byEmail: map[string]events.UserData{}, statuses: map[string]string{}}
	h := UserRegistration(dir, nil)

	d := delivery(t, registrationEvent("a@example.com"))
	for i := 0; i < 3; i++ {
		if err := h(context.Background(), d); err != nil {
			t.Fatalf("delivery %d should succeed: %v", i+1, err)
		}
	}
	if dir.inserts != 1 {
		t.Fatalf("natural-key check must prevent duplicate inserts, got %d", dir.inserts)
	}
}

func TestUserRegistrationApprovalUpdatesStatus(t *testing.T) {
	dir := &fakeDirectory{
		byEmail:  map[string]events.UserData{"hr@example.com": {Email: "hr@example.com"}},
		statuses: map[string]string{},
	}
	h := UserRegistration(dir, nil)

	ev := events.UserRegistrationEvent{
		Header:   events.Header{EventID: "appr-1", EventType: events.TypeHRApproved},
		UserData: events.UserData{Email: "hr@example.com", Status: "ACTIVE"},
	}
	if err := h(context.Background(), delivery(t, ev)); err != nil {
		t.Fatalf("approval should succeed: %v", err)
	}
	if dir.statuses["hr@example.com"] != "ACTIVE" {
		t.Fatalf("status not applied: %v", dir.statuses)
	}

	ev.UserData.Email = "ghost@example.com"
	if err := h(context.Background(), delivery(t, ev)); !consumer.IsFatal(err) {
		t.Fatalf("approval for missing user must be terminal, got %v", err)
	}
}

func TestUserRegistrationMissingFields(t *testing.T) {
	h := UserRegistration(&fakeDirectory{byEmail: map[string]events.UserData{}, statuses: map[string]string{}}, nil)
	ev := registrationEvent("")
	if err := h(context.Background(), delivery(t, ev)); !consumer.IsFatal(err) {
		t.Fatalf("missing email must be terminal, got %v", err)
	}
}

// ---- user index ----

type fakeIndex struct {
	versions map[string]int64
	upserts  []int64
	deletes  int
}

func (f *fakeIndex) Version(_ context.Context, userID string) (int64, bool, error) {
	v, ok := f.versions[userID]
	return v, ok, nil
}

func (f *fakeIndex) Upsert(_ context.Context, ev events.UserChangeEvent) error {
	f.versions[ev.UserID] = ev.Version
	f.upserts = append(f.upserts, ev.Version)
	return nil
}

func (f *fakeIndex) Delete(_ context.Context, userID string) error {
	delete(f.versions, userID)
	f.deletes++
	return nil
}

func changeEvent(eventType string, version int64) events.UserChangeEvent {
	return events.UserChangeEvent{
		Header:  events.Header{EventID: "chg-1", EventType: eventType},
		UserID:  "u1",
		Version: version,
		Data:    events.UserEventData{UserID: "u1", Email: "a@example.com", Version: version},
	}
}

func TestUserIndexDropsStaleVersions(t *testing.T) {
	idx := &fakeIndex{versions: map[string]int64{}}
	h := UserIndexSync(idx)
	ctx := context.Background()

	if err := h(ctx, delivery(t, changeEvent(events.TypeUserUpdated, 2))); err != nil {
		t.Fatalf("v2 should apply: %v", err)
	}
	// A redelivered older event must not regress the index.
	if err := h(ctx, delivery(t, changeEvent(events.TypeUserUpdated, 1))); err != nil {
		t.Fatalf("stale event should be skipped, not failed: %v", err)
	}
	if err := h(ctx, delivery(t, changeEvent(events.TypeUserUpdated, 3))); err != nil {
		t.Fatalf("v3 should apply: %v", err)
	}

	if idx.versions["u1"] != 3 {
		t.Fatalf("index should end at v3, got v%d", idx.versions["u1"])
	}
	if len(idx.upserts) != 2 {
		t.Fatalf("stale version must not be written, upserts=%v", idx.upserts)
	}
}

func TestUserIndexDelete(t *testing.T) {
	idx := &fakeIndex{versions: map[string]int64{"u1": 5}}
	h := UserIndexSync(idx)

	if err := h(context.Background(), delivery(t, changeEvent(events.TypeUserDeleted, 6))); err != nil {
		t.Fatalf("delete should succeed: %v", err)
	}
	// Deletes are naturally idempotent.
	if err := h(context.Background(), delivery(t, changeEvent(events.TypeUserDeleted, 6))); err != nil {
		t.Fatalf("replayed delete should succeed: %v", err)
	}
	if idx.deletes != 2 {
		t.Fatalf("expected 2 delete calls, got %d", idx.deletes)
	}
	if _, ok := idx.versions["u1"]; ok {
		t.Fatalf("user should be gone from the index")
	}
}

// ---- job stats ----

type fakeJobStats struct {
	applied map[string]bool // eventID -> seen
	total   int
	missing bool
}

func (f *fakeJobStats) ApplyStatsDelta(_ context.Context, jobID, eventID string, delta int) error {
	if f.missing {
		return store.ErrNotFound
	}
	if f.applied[eventID] {
		return nil
	}
	f.applied[eventID] = true
	f.total += delta
	return nil
}

func TestJobStatsRedeliveryDoesNotDoubleCount(t *testing.T) {
	jobs := &fakeJobStats{applied: map[string]bool{}}
	h := JobStatsUpdate(jobs)

	ev := events.JobStatsUpdateEvent{
		Header: events.Header{EventID: "js-1", EventType: events.TypeJobStatsUpdated},
		JobID:  "job-1",
		Delta:  1,
	}
	d := delivery(t, ev)
	for i := 0; i < 3; i++ {
		if err := h(context.Background(), d); err != nil {
			t.Fatalf("delivery %d should succeed: %v", i+1, err)
		}
	}
	if jobs.total != 1 {
		t.Fatalf("redelivery must not double-count, total=%d", jobs.total)
	}
}

func TestJobStatsUnknownJobIsTerminal(t *testing.T) {
	h := JobStatsUpdate(&fakeJobStats{missing: true})
	ev := events.JobStatsUpdateEvent{
		Header: events.Header{EventID: "js-2", EventType: events.TypeJobStatsUpdated},
		JobID:  "ghost",
		Delta:  1,
	}
	if err := h(context.Background(), delivery(t, ev)); !consumer.IsFatal(err) {
		t.Fatalf("unknown job must be terminal, got %v", err)
	}
}

// ---- notification routing ----

type fakeRouter struct {
	routed  []events.NotificationEvent
	outcome bool
}

func (f *fakeRouter) Process(_ context.Context, ev events.NotificationEvent) bool {
	f.routed = append(f.routed, ev)
	return f.outcome
}

func TestNotificationEventsUndeliveredIsNotRetried(t *testing.T) {
	router := &fakeRouter{outcome: false}
	h := NotificationEvents(router)

	ev := events.NotificationEvent{
		Header:         events.Header{EventID: "n-1", EventType: "GENERIC"},
		RecipientEmail: "a@example.com",
	}
	if err := h(context.Background(), delivery(t, ev)); err != nil {
		t.Fatalf("undelivered outcome must still ack: %v", err)
	}
	if len(router.routed) != 1 {
		t.Fatalf("event should reach the chain once")
	}
}

func TestApplicationEventsFanOut(t *testing.T) {
	router := &fakeRouter{outcome: true}
	h := ApplicationEvents(router)

	ev := events.ApplicationCreatedEvent{
		Header: events.Header{EventID: "app-1", EventType: events.TypeApplicationCreated},
		Data: events.ApplicationData{
			ApplicationID:  "a1",
			Username:       "carol",
			CandidateEmail: "carol@example.com",
			JobID:          "job-1",
			JobTitle:       "Backend Engineer",
			CompanyName:    "Acme",
			HrUsername:     "hr@acme.com",
			CandidateName:  "carol",
		},
	}
	if err := h(context.Background(), delivery(t, ev)); err != nil {
		t.Fatalf("fan-out should succeed: %v", err)
	}
	if len(router.routed) != 2 {
		t.Fatalf("expected candidate + HR notifications, got %d", len(router.routed))
	}

	candidate, hr := router.routed[0], router.routed[1]
	if candidate.EventID != "app-1:candidate" || hr.EventID != "app-1:hr" {
		t.Fatalf("derived ids must be stable for redelivery: %s / %s", candidate.EventID, hr.EventID)
	}
	if candidate.RecipientEmail != "carol@example.com" {
		t.Fatalf("candidate notification should use the candidate email, got %s", candidate.RecipientEmail)
	}
	if hr.RecipientEmail != "hr@acme.com" {
		t.Fatalf("hr notification misaddressed: %s", hr.RecipientEmail)
	}
	if candidate.NotificationType != "application_submitted" || hr.NotificationType != "application_received" {
		t.Fatalf("wrong notification types: %s / %s", candidate.NotificationType, hr.NotificationType)
	}
}

func TestApplicationEventsNoHrRecipient(t *testing.T) {
	router := &fakeRouter{outcome: true}
	h := ApplicationEvents(router)

	ev := events.ApplicationCreatedEvent{
		Header: events.Header{EventID: "app-2", EventType: events.TypeApplicationCreated},
		Data: events.ApplicationData{
			ApplicationID: "a2",
			Username:      "dan",
			JobID:         "job-2",
		},
	}
	if err := h(context.Background(), delivery(t, ev)); err != nil {
		t.Fatalf("fan-out should succeed: %v", err)
	}
	if len(router.routed) != 1 {
		t.Fatalf("no HR username means candidate-only fan-out, got %d", len(router.routed))
	}
}

// ---- session invalidation ----

type fakeSessions struct {
	invalidated []string
}

func (f *fakeSessions) Invalidate(_ context.Context, userID, sessionID string) (int, error) {
	f.invalidated = append(f.invalidated, userID+"/"+sessionID)
	return 1, nil
}

func TestSessionInvalidation(t *testing.T) {
	sessions := &fakeSessions{}
	h := SessionInvalidation(sessions)

	ev := events.SessionInvalidationEvent{
		Header: events.Header{EventID: "s-1", EventType: events.TypeSessionInvalidation},
		UserID: "u1",
		Reason: "USER_BLOCKED",
	}
	if err := h(context.Background(), delivery(t, ev)); err != nil {
		t.Fatalf("invalidation should succeed: %v", err)
	}
	if len(sessions.invalidated) != 1 || sessions.invalidated[0] != "u1/" {
		t.Fatalf("unexpected invalidation calls: %v", sessions.invalidated)
	}

	ev.UserID = ""
	if err := h(context.Background(), delivery(t, ev)); !consumer.IsFatal(err) {
		t.Fatalf("missing userId must be terminal, got %v", err)
	}
}

// ---- company sync ----

type fakeCompanies struct {
	upserts map[string]events.CompanyData
}

func (f *fakeCompanies) UpsertCompany(_ context.Context, data events.CompanyData) error {
	f.upserts[data.CompanyID] = data
	return nil
}

func TestCompanySyncReplayConverges(t *testing.T) {
	companies := &fakeCompanies{upserts: map[string]events.CompanyData{}}
	h := CompanySync(companies)

	ev := events.CompanySyncEvent{
		Header:  events.Header{EventID: "c-1", EventType: events.TypeCompanyUpdated},
		Company: events.CompanyData{CompanyID: "co-1", Name: "Acme"},
	}
	d := delivery(t, ev)
	for i := 0; i < 2; i++ {
		if err := h(context.Background(), d); err != nil {
			t.Fatalf("replay %d should succeed: %v", i+1, err)
		}
	}
	if len(companies.upserts) != 1 || companies.upserts["co-1"].Name != "Acme" {
		t.Fatalf("replays must converge on one row: %v", companies.upserts)
	}
}

// ---- security follow-ups ----

func TestPasswordChangeTriggersSecurityFollowUp(t *testing.T) {
	creds := &fakeCredentials{hashes: map[string]string{"u1": "old"}}
	var alerts []string
	h := PasswordChange(creds, func(userID, email string) {
		alerts = append(alerts, userID+"/"+email)
	})

	ev := passwordEvent("u1", "new")
	ev.PasswordData.Email = "alice@example.com"
	if err := h(context.Background(), delivery(t, ev)); err != nil {
		t.Fatalf("sync should succeed: %v", err)
	}
	if len(alerts) != 1 || alerts[0] != "u1/alice@example.com" {
		t.Fatalf("follow-up must fire once after a synced change, got %v", alerts)
	}
}

func TestPasswordChangeNoFollowUpWithoutSync(t *testing.T) {
	called := 0
	notify := func(string, string) { called++ }

	h := PasswordChange(&fakeCredentials{err: errors.New("db down")}, notify)
	_ = h(context.Background(), delivery(t, passwordEvent("u1", "h")))

	h = PasswordChange(&fakeCredentials{hashes: map[string]string{}}, notify)
	_ = h(context.Background(), delivery(t, passwordEvent("ghost", "h")))

	if called != 0 {
		t.Fatalf("follow-up must not fire for failed syncs, got %d calls", called)
	}
}

func TestUserRegistrationApprovalNotifies(t *testing.T) {
	dir := &fakeDirectory{
		byEmail:  map[string]events.UserData{"hr@example.com": {Email: "hr@example.com"}},
		statuses: map[string]string{},
	}
	var notified []string
	h := UserRegistration(dir, func(email, fullName string) {
		notified = append(notified, email+"/"+fullName)
	})

	ev := events.UserRegistrationEvent{
		Header:   events.Header{EventID: "appr-2", EventType: events.TypeHRApproved},
		UserData: events.UserData{Email: "hr@example.com", FullName: "Ha Ri", Status: "ACTIVE"},
	}
	if err := h(context.Background(), delivery(t, ev)); err != nil {
		t.Fatalf("approval should succeed: %v", err)
	}
	if len(notified) != 1 || notified[0] != "hr@example.com/Ha Ri" {
		t.Fatalf("approval must publish the welcome notification, got %v", notified)
	}

	if err := h(context.Background(), delivery(t, registrationEvent("new@example.com"))); err != nil {
		t.Fatalf("registration should succeed: %v", err)
	}
	if len(notified) != 1 {
		t.Fatalf("plain registration must not notify, got %v", notified)
	}
}

// ---- ordered delivery ----

// memoryBus queues envelopes for one partition key and hands them to the
// retry wrapper in publish order, the way a single kafka partition would.
type memoryBus struct {
	key        []byte
	deliveries []consumer.Delivery
}

func (b *memoryBus) publish(t *testing.T, ev interface{}) {
	t.Helper()
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	b.deliveries = append(b.deliveries, consumer.Delivery{
		Topic:  "test",
		Key:    b.key,
		Offset: int64(len(b.deliveries)),
		Value:  data,
	})
}

func (b *memoryBus) drain(t *testing.T, h consumer.Handler) {
	t.Helper()
	for _, d := range b.deliveries {
		err := consumer.RunWithRetry(context.Background(), d, h, consumer.RetryPolicy{}, nopDLQ{})
		if err != nil {
			t.Fatalf("delivery at offset %d left unacked: %v", d.Offset, err)
		}
	}
}

type nopDLQ struct{}

func (nopDLQ) PublishDeadLetter(context.Context, events.DeadLetterRecord) error { return nil }

func TestSameKeyDeliveriesApplyInOrder(t *testing.T) {
	creds := &fakeCredentials{hashes: map[string]string{"u1": "h0"}}
	bus := &memoryBus{key: []byte("u1")}

	first := passwordEvent("u1", "h1")
	first.EventID = "pw-e1"
	second := passwordEvent("u1", "h2")
	second.EventID = "pw-e2"
	bus.publish(t, first)
	bus.publish(t, second)

	bus.drain(t, PasswordChange(creds, nil))

	if creds.hashes["u1"] != "h2" {
		t.Fatalf("later event on one partition key must win, got %q", creds.hashes["u1"])
	}
	if creds.calls != 2 {
		t.Fatalf("both deliveries must apply, got %d", creds.calls)
	}
}
