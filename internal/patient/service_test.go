package patient

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
)

// mockStore implements Store for error injection. Unset funcs fall through
// to an embedded MemoryStore.
type mockStore struct {
	*MemoryStore
	existsByEmailFunc func(ctx context.Context, email string) (bool, error)
	saveFunc          func(ctx context.Context, p Patient) (Patient, error)
	deleteFunc        func(ctx context.Context, id uuid.UUID) error
}

func newMockStore() *mockStore {
	return &mockStore{MemoryStore: NewMemoryStore()}
}

func (m *mockStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if m.existsByEmailFunc != nil {
		return m.existsByEmailFunc(ctx, email)
	}
	return m.MemoryStore.ExistsByEmail(ctx, email)
}

func (m *mockStore) Save(ctx context.Context, p Patient) (Patient, error) {
	if m.saveFunc != nil {
		return m.saveFunc(ctx, p)
	}
	return m.MemoryStore.Save(ctx, p)
}

func (m *mockStore) DeleteByID(ctx context.Context, id uuid.UUID) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return m.MemoryStore.DeleteByID(ctx, id)
}

type billingCall struct {
	PatientID, Name, Email string
}

// fakeBilling records provisioning calls and fails with err when set
type fakeBilling struct {
	mu    sync.Mutex
	calls []billingCall
	err   error
}

func (f *fakeBilling) CreateBillingAccount(ctx context.Context, patientID, name, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, billingCall{PatientID: patientID, Name: name, Email: email})
	return f.err
}

func (f *fakeBilling) Calls() []billingCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]billingCall(nil), f.calls...)
}

// fakeEvents records sent events and the context state at send time
type fakeEvents struct {
	mu      sync.Mutex
	sent    []Patient
	ctxErrs []error
	err     error
}

func (f *fakeEvents) SendPatientCreated(ctx context.Context, p Patient) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, p)
	return nil
}

func (f *fakeEvents) Sent() []Patient {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]Patient(nil), f.sent...)
}

type fakeMetrics struct {
	mu      sync.Mutex
	billing map[string]int
	events  map[string]int
	ops     map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{billing: map[string]int{}, events: map[string]int{}, ops: map[string]int{}}
}

func (f *fakeMetrics) RecordPatientOperation(ctx context.Context, operation string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops[operation]++
}

func (f *fakeMetrics) RecordBillingCall(ctx context.Context, outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.billing[outcome]++
}

func (f *fakeMetrics) RecordEventPublished(ctx context.Context, outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[outcome]++
}

func aliceRequest() PatientRequest {
	return PatientRequest{
		Name:           "Alice",
		Email:          "alice@x.com",
		Address:        "1 Main St",
		DateOfBirth:    "1990-01-01",
		RegisteredDate: "2024-01-01",
	}
}

func newTestService(store Store, billing *fakeBilling, events *fakeEvents) *Service {
	return NewService(store, billing, events, nil, nil, ServiceConfig{CompensateBillingFailure: true})
}

func storeSize(t *testing.T, store Store) int {
	t.Helper()

	all, err := store.FindAll(context.Background())
	if err != nil {
		t.Fatalf("FindAll failed: %v", err)
	}
	return len(all)
}

// TestCreatePatient_Success covers the full create flow for a new patient
func TestCreatePatient_Success(t *testing.T) {
	store := NewMemoryStore()
	billing := &fakeBilling{}
	events := &fakeEvents{}
	service := newTestService(store, billing, events)

	resp, err := service.CreatePatient(context.Background(), aliceRequest())
	service.Wait()

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if _, err := uuid.Parse(resp.ID); err != nil {
		t.Errorf("Expected generated UUID id, got %q", resp.ID)
	}
	want := PatientResponse{ID: resp.ID, Name: "Alice", Email: "alice@x.com", Address: "1 Main St", DateOfBirth: "1990-01-01"}
	if *resp != want {
		t.Errorf("Expected %+v, got %+v", want, *resp)
	}

	calls := billing.Calls()
	if len(calls) != 1 {
		t.Fatalf("Expected exactly 1 billing call, got %d", len(calls))
	}
	if calls[0] != (billingCall{PatientID: resp.ID, Name: "Alice", Email: "alice@x.com"}) {
		t.Errorf("Unexpected billing call: %+v", calls[0])
	}

	sent := events.Sent()
	if len(sent) != 1 {
		t.Fatalf("Expected exactly 1 event, got %d", len(sent))
	}
	if sent[0].ID.String() != resp.ID || sent[0].Email != "alice@x.com" || sent[0].Name != "Alice" {
		t.Errorf("Event data does not match patient: %+v", sent[0])
	}
}

// TestCreatePatient_ListRoundTrip checks a created patient is listed unchanged
func TestCreatePatient_ListRoundTrip(t *testing.T) {
	service := newTestService(NewMemoryStore(), &fakeBilling{}, &fakeEvents{})

	created, err := service.CreatePatient(context.Background(), aliceRequest())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	list, err := service.ListPatients(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(list) != 1 || list[0] != *created {
		t.Errorf("Expected list [%+v], got %+v", *created, list)
	}

	got, err := service.GetPatient(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if *got != *created {
		t.Errorf("Expected %+v, got %+v", *created, *got)
	}
}

// TestCreatePatient_DuplicateEmail checks the second registration is rejected without side effects
func TestCreatePatient_DuplicateEmail(t *testing.T) {
	store := NewMemoryStore()
	billing := &fakeBilling{}
	events := &fakeEvents{}
	service := newTestService(store, billing, events)

	if _, err := service.CreatePatient(context.Background(), aliceRequest()); err != nil {
		t.Fatalf("First create failed: %v", err)
	}

	second := aliceRequest()
	second.Name = "Alice Two"
	_, err := service.CreatePatient(context.Background(), second)
	service.Wait()

	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("Expected ConflictError, got %v", err)
	}
	if conflict.Kind != KindEmailAlreadyExists {
		t.Errorf("Expected kind %s, got %s", KindEmailAlreadyExists, conflict.Kind)
	}
	if err.Error() != "A patient is already registered with this Email alice@x.com" {
		t.Errorf("Unexpected message: %s", err.Error())
	}
	if n := storeSize(t, store); n != 1 {
		t.Errorf("Expected 1 stored patient, got %d", n)
	}
	if n := len(billing.Calls()); n != 1 {
		t.Errorf("Expected 1 billing call, got %d", n)
	}
	if n := len(events.Sent()); n != 1 {
		t.Errorf("Expected 1 event, got %d", n)
	}
}

// TestCreatePatient_ValidationError checks invalid requests never reach the store
func TestCreatePatient_ValidationError(t *testing.T) {
	store := NewMemoryStore()
	billing := &fakeBilling{}
	service := newTestService(store, billing, &fakeEvents{})

	_, err := service.CreatePatient(context.Background(), PatientRequest{})

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	fields := map[string]bool{}
	for _, f := range ve.Fields {
		fields[f.Field] = true
	}
	for _, name := range []string{"name", "email", "address", "dateOfBirth", "registeredDate"} {
		if !fields[name] {
			t.Errorf("Expected a field error for %s", name)
		}
	}
	if storeSize(t, store) != 0 || len(billing.Calls()) != 0 {
		t.Error("Expected no store write and no billing call")
	}
}

// TestCreatePatient_SaveRace checks a unique violation at save time is a conflict
func TestCreatePatient_SaveRace(t *testing.T) {
	store := newMockStore()
	store.saveFunc = func(ctx context.Context, p Patient) (Patient, error) {
		return Patient{}, ErrEmailTaken
	}
	billing := &fakeBilling{}
	service := newTestService(store, billing, &fakeEvents{})

	_, err := service.CreatePatient(context.Background(), aliceRequest())

	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("Expected ConflictError, got %v", err)
	}
	if len(billing.Calls()) != 0 {
		t.Error("Expected no billing call after failed save")
	}
}

// TestCreatePatient_StoreError checks unexpected store errors are wrapped
func TestCreatePatient_StoreError(t *testing.T) {
	storeErr := errors.New("connection reset")
	store := newMockStore()
	store.existsByEmailFunc = func(ctx context.Context, email string) (bool, error) {
		return false, storeErr
	}
	service := newTestService(store, &fakeBilling{}, &fakeEvents{})

	_, err := service.CreatePatient(context.Background(), aliceRequest())

	if !errors.Is(err, storeErr) {
		t.Fatalf("Expected wrapped store error, got %v", err)
	}
	if ErrorKindOf(err) != "" {
		t.Errorf("Expected unclassified error, got kind %q", ErrorKindOf(err))
	}
}

// TestCreatePatient_BillingFailureCompensates checks the record is rolled back
func TestCreatePatient_BillingFailureCompensates(t *testing.T) {
	store := NewMemoryStore()
	billingErr := errors.New("billing unavailable")
	events := &fakeEvents{}
	metrics := newFakeMetrics()
	service := NewService(store, &fakeBilling{err: billingErr}, events, nil, metrics,
		ServiceConfig{CompensateBillingFailure: true})

	_, err := service.CreatePatient(context.Background(), aliceRequest())
	service.Wait()

	var de *DependencyError
	if !errors.As(err, &de) {
		t.Fatalf("Expected DependencyError, got %v", err)
	}
	if de.Dependency != "billing" || !de.Compensated {
		t.Errorf("Expected compensated billing error, got %+v", de)
	}
	if !errors.Is(err, billingErr) {
		t.Error("Expected the billing cause to be wrapped")
	}
	if n := storeSize(t, store); n != 0 {
		t.Errorf("Expected rolled back store, got %d patients", n)
	}
	if len(events.Sent()) != 0 {
		t.Error("Expected no event for a failed create")
	}
	if metrics.billing["failure"] != 1 {
		t.Errorf("Expected 1 billing failure metric, got %d", metrics.billing["failure"])
	}

	if _, err := service.CreatePatient(context.Background(), aliceRequest()); !errors.As(err, &de) {
		t.Errorf("Expected retry with same email to reach billing again, got %v", err)
	}
}

// TestCreatePatient_BillingFailureWithoutCompensation checks the record is kept when configured
func TestCreatePatient_BillingFailureWithoutCompensation(t *testing.T) {
	store := NewMemoryStore()
	service := NewService(store, &fakeBilling{err: errors.New("timeout")}, &fakeEvents{}, nil, nil,
		ServiceConfig{CompensateBillingFailure: false})

	_, err := service.CreatePatient(context.Background(), aliceRequest())

	var de *DependencyError
	if !errors.As(err, &de) {
		t.Fatalf("Expected DependencyError, got %v", err)
	}
	if de.Compensated {
		t.Error("Expected Compensated to be false")
	}
	if n := storeSize(t, store); n != 1 {
		t.Errorf("Expected patient to stay persisted, got %d", n)
	}
}

// TestCreatePatient_RollbackFailure checks a failed rollback is reported as uncompensated
func TestCreatePatient_RollbackFailure(t *testing.T) {
	store := newMockStore()
	store.deleteFunc = func(ctx context.Context, id uuid.UUID) error {
		return errors.New("delete failed")
	}
	service := newTestService(store, &fakeBilling{err: errors.New("down")}, &fakeEvents{})

	_, err := service.CreatePatient(context.Background(), aliceRequest())

	var de *DependencyError
	if !errors.As(err, &de) {
		t.Fatalf("Expected DependencyError, got %v", err)
	}
	if de.Compensated {
		t.Error("Expected Compensated to be false when rollback fails")
	}
}

// TestCreatePatient_EventFailureNotSurfaced checks publish failures do not fail the request
func TestCreatePatient_EventFailureNotSurfaced(t *testing.T) {
	store := NewMemoryStore()
	metrics := newFakeMetrics()
	service := NewService(store, &fakeBilling{}, &fakeEvents{err: errors.New("broker down")}, nil, metrics,
		ServiceConfig{CompensateBillingFailure: true})

	resp, err := service.CreatePatient(context.Background(), aliceRequest())
	service.Wait()

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if resp == nil || storeSize(t, store) != 1 {
		t.Error("Expected the patient to be created")
	}
	if metrics.events["failure"] != 1 {
		t.Errorf("Expected 1 event failure metric, got %d", metrics.events["failure"])
	}
	if metrics.ops["create"] != 1 {
		t.Errorf("Expected 1 create operation metric, got %d", metrics.ops["create"])
	}
}

// TestCreatePatient_EventOutlivesRequest checks the event is sent after the request context ends
func TestCreatePatient_EventOutlivesRequest(t *testing.T) {
	events := &fakeEvents{}
	service := newTestService(NewMemoryStore(), &fakeBilling{}, events)

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := service.CreatePatient(ctx, aliceRequest()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	cancel()
	service.Wait()

	events.mu.Lock()
	defer events.mu.Unlock()
	if len(events.ctxErrs) != 1 || events.ctxErrs[0] != nil {
		t.Errorf("Expected event context to be live, got %v", events.ctxErrs)
	}
}

// TestCreatePatient_ConcurrentSameEmail checks only one of many concurrent creates wins
func TestCreatePatient_ConcurrentSameEmail(t *testing.T) {
	store := NewMemoryStore()
	billing := &fakeBilling{}
	service := newTestService(store, billing, &fakeEvents{})

	const workers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.CreatePatient(context.Background(), aliceRequest())
			var conflict *ConflictError
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.As(err, &conflict):
				conflicts++
			default:
				t.Errorf("Unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	service.Wait()

	if successes != 1 || conflicts != workers-1 {
		t.Errorf("Expected 1 success and %d conflicts, got %d and %d", workers-1, successes, conflicts)
	}
	if n := storeSize(t, store); n != 1 {
		t.Errorf("Expected 1 stored patient, got %d", n)
	}
	if n := len(billing.Calls()); n != 1 {
		t.Errorf("Expected 1 billing call, got %d", n)
	}
}

// TestUpdatePatient_NotFound checks unknown ids leave the store unchanged
func TestUpdatePatient_NotFound(t *testing.T) {
	store := NewMemoryStore()
	service := newTestService(store, &fakeBilling{}, &fakeEvents{})
	if _, err := service.CreatePatient(context.Background(), aliceRequest()); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	missing := uuid.NewString()
	_, err := service.UpdatePatient(context.Background(), missing, aliceRequest())

	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Expected NotFoundError, got %v", err)
	}
	if nf.Kind != KindPatientNotFound || nf.ID != missing {
		t.Errorf("Unexpected not found error: %+v", nf)
	}
	if n := storeSize(t, store); n != 1 {
		t.Errorf("Expected store to be unchanged, got %d patients", n)
	}
}

// TestUpdatePatient_EmailConflict checks another patient's email is rejected
func TestUpdatePatient_EmailConflict(t *testing.T) {
	service := newTestService(NewMemoryStore(), &fakeBilling{}, &fakeEvents{})

	if _, err := service.CreatePatient(context.Background(), aliceRequest()); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	bobReq := aliceRequest()
	bobReq.Name = "Bob"
	bobReq.Email = "bob@x.com"
	bob, err := service.CreatePatient(context.Background(), bobReq)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	bobReq.Email = "alice@x.com"
	_, err = service.UpdatePatient(context.Background(), bob.ID, bobReq)

	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("Expected ConflictError, got %v", err)
	}

	got, _ := service.GetPatient(context.Background(), bob.ID)
	if got.Email != "bob@x.com" {
		t.Errorf("Expected email to stay bob@x.com, got %s", got.Email)
	}
}

// TestUpdatePatient_OwnEmail checks a patient can keep its email and has no side effects
func TestUpdatePatient_OwnEmail(t *testing.T) {
	store := NewMemoryStore()
	billing := &fakeBilling{}
	events := &fakeEvents{}
	service := newTestService(store, billing, events)

	created, err := service.CreatePatient(context.Background(), aliceRequest())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	service.Wait()

	update := aliceRequest()
	update.Address = "2 High St"
	update.RegisteredDate = ""
	updated, err := service.UpdatePatient(context.Background(), created.ID, update)
	service.Wait()

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if updated.Address != "2 High St" || updated.ID != created.ID {
		t.Errorf("Unexpected update result: %+v", updated)
	}

	id, _ := uuid.Parse(created.ID)
	stored, _, _ := store.FindByID(context.Background(), id)
	if stored.RegisteredDate.Format(DateLayout) != "2024-01-01" {
		t.Errorf("Expected registered date to be preserved, got %s", stored.RegisteredDate.Format(DateLayout))
	}
	if len(billing.Calls()) != 1 || len(events.Sent()) != 1 {
		t.Error("Expected update to neither provision billing nor emit events")
	}
}

// TestUpdatePatient_OverwritesRegisteredDate checks a supplied registered date replaces the old one
func TestUpdatePatient_OverwritesRegisteredDate(t *testing.T) {
	store := NewMemoryStore()
	service := newTestService(store, &fakeBilling{}, &fakeEvents{})

	created, err := service.CreatePatient(context.Background(), aliceRequest())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	update := aliceRequest()
	update.RegisteredDate = "2025-06-30"
	if _, err := service.UpdatePatient(context.Background(), created.ID, update); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	id, _ := uuid.Parse(created.ID)
	stored, _, _ := store.FindByID(context.Background(), id)
	if stored.RegisteredDate.Format(DateLayout) != "2025-06-30" {
		t.Errorf("Expected registered date 2025-06-30, got %s", stored.RegisteredDate.Format(DateLayout))
	}
}

// TestUpdatePatient_InvalidID checks malformed ids are validation failures
func TestUpdatePatient_InvalidID(t *testing.T) {
	service := newTestService(NewMemoryStore(), &fakeBilling{}, &fakeEvents{})

	_, err := service.UpdatePatient(context.Background(), "not-a-uuid", aliceRequest())

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	if len(ve.Fields) != 1 || ve.Fields[0].Field != "id" {
		t.Errorf("Expected a single id field error, got %+v", ve.Fields)
	}
}

// TestGetPatient_NotFound checks absence is reported as NotFoundError
func TestGetPatient_NotFound(t *testing.T) {
	service := newTestService(NewMemoryStore(), &fakeBilling{}, &fakeEvents{})

	_, err := service.GetPatient(context.Background(), uuid.NewString())

	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Expected NotFoundError, got %v", err)
	}
}

// TestDeletePatient checks existing and unknown ids both succeed
func TestDeletePatient(t *testing.T) {
	store := NewMemoryStore()
	service := newTestService(store, &fakeBilling{}, &fakeEvents{})

	created, err := service.CreatePatient(context.Background(), aliceRequest())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := service.DeletePatient(context.Background(), created.ID); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if n := storeSize(t, store); n != 0 {
		t.Errorf("Expected empty store, got %d", n)
	}

	if err := service.DeletePatient(context.Background(), uuid.NewString()); err != nil {
		t.Errorf("Expected unknown id delete to succeed, got: %v", err)
	}

	if _, err := service.CreatePatient(context.Background(), aliceRequest()); err != nil {
		t.Errorf("Expected email to be reusable after delete, got: %v", err)
	}
}
