package customersync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"customer-service/internal/model"
	"customer-service/pkg/client"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI serves a mutable record set and counts calls
type fakeAPI struct {
	mu        sync.Mutex
	customers []model.Customer
	listErr   error
	writeErr  error
	lists     int
	creates   []client.Payload
	updates   map[string]client.Payload
	deletes   []string
	listHook  func() // runs once, inside the next List call
	writeHook func() // runs inside a write before returning
}

func newFakeAPI(customers ...model.Customer) *fakeAPI {
	return &fakeAPI{customers: customers, updates: map[string]client.Payload{}}
}

func (f *fakeAPI) List(ctx context.Context) ([]model.Customer, error) {
	f.mu.Lock()
	f.lists++
	customers, err := append([]model.Customer(nil), f.customers...), f.listErr
	hook := f.listHook
	f.listHook = nil
	f.mu.Unlock()

	// the response is fixed before the hook runs, like a reply already in flight
	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}
	return customers, nil
}

func (f *fakeAPI) Create(ctx context.Context, p client.Payload) (*model.Customer, error) {
	if f.writeHook != nil {
		f.writeHook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, p)
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	c := model.Customer{ID: "new", Name: *p.Name}
	f.customers = append([]model.Customer{c}, f.customers...)
	return &c, nil
}

func (f *fakeAPI) Update(ctx context.Context, id string, p client.Payload) (*model.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates[id] = p
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	for i := range f.customers {
		if f.customers[i].ID == id {
			f.customers[i].Name = *p.Name
			return &f.customers[i], nil
		}
	}
	return nil, &client.APIError{Status: 404, Message: "Not found"}
}

func (f *fakeAPI) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	if f.writeErr != nil {
		return f.writeErr
	}
	kept := f.customers[:0]
	for _, c := range f.customers {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	f.customers = kept
	return nil
}

func strPtr(s string) *string { return &s }

func acme() model.Customer {
	return model.Customer{ID: "c1", Name: "Acme", Email: strPtr("a@acme.test"), OrgID: "org_1"}
}

func mounted(t *testing.T, api *fakeAPI) *Controller {
	t.Helper()
	c := NewController(api, nil)
	require.NoError(t, c.SetTenant(context.Background(), "org_1"))
	return c
}

func TestController_NoTenant(t *testing.T) {
	api := newFakeAPI(acme())
	c := NewController(api, nil)
	assert.Equal(t, Uninitialized, c.Snapshot().State)

	require.NoError(t, c.SetTenant(context.Background(), ""))

	s := c.Snapshot()
	assert.Equal(t, NoTenant, s.State)
	assert.Equal(t, NoTenantMessage, s.Error)
	assert.Zero(t, api.lists)
}

func TestController_LoadReady(t *testing.T) {
	c := mounted(t, newFakeAPI(acme()))

	s := c.Snapshot()
	assert.Equal(t, Ready, s.State)
	assert.Equal(t, "org_1", s.Tenant)
	require.Len(t, s.Customers, 1)
	assert.Empty(t, s.Error)
}

func TestController_LoadError(t *testing.T) {
	api := newFakeAPI()
	api.listErr = &client.APIError{Status: 500, Message: "Failed to load customers"}
	c := NewController(api, nil)

	err := c.SetTenant(context.Background(), "org_1")
	require.Error(t, err)

	s := c.Snapshot()
	assert.Equal(t, Error, s.State)
	assert.Equal(t, "Failed to load customers", s.Error)
}

func TestController_RejectsOtherOrganizationsRecords(t *testing.T) {
	api := newFakeAPI(acme())
	c := NewController(api, nil)

	err := c.SetTenant(context.Background(), "org_2")
	assert.ErrorIs(t, err, ErrTenantMismatch)

	s := c.Snapshot()
	assert.Equal(t, Error, s.State)
	assert.Equal(t, "org_2", s.Tenant)
	assert.Empty(t, s.Customers)
	assert.Equal(t, ErrTenantMismatch.Error(), s.Error)
}

func TestController_DropsStaleTenantResponse(t *testing.T) {
	api := newFakeAPI(acme())
	c := NewController(api, nil)

	release := make(chan struct{})
	entered := make(chan struct{})
	api.listHook = func() {
		close(entered)
		<-release
	}

	done := make(chan error)
	go func() { done <- c.SetTenant(context.Background(), "org_1") }()
	<-entered

	// the user switches organization while org_1 is still loading
	api.mu.Lock()
	api.customers = []model.Customer{{ID: "c2", Name: "Beta", OrgID: "org_2"}}
	api.mu.Unlock()
	require.NoError(t, c.SetTenant(context.Background(), "org_2"))

	close(release)
	require.NoError(t, <-done)

	s := c.Snapshot()
	assert.Equal(t, "org_2", s.Tenant)
	require.Len(t, s.Customers, 1)
	assert.Equal(t, "Beta", s.Customers[0].Name)
}

func TestController_CreateRefetches(t *testing.T) {
	api := newFakeAPI(acme())
	c := mounted(t, api)

	c.BeginCreate()
	assert.False(t, c.CanSubmit())
	require.NoError(t, c.SetForm(Form{Name: "Beta", Email: "", Notes: "vip"}))
	assert.True(t, c.CanSubmit())

	require.NoError(t, c.Submit(context.Background()))

	require.Len(t, api.creates, 1)
	p := api.creates[0]
	assert.Equal(t, "Beta", *p.Name)
	assert.Nil(t, p.Email)
	assert.Nil(t, p.Phone)
	assert.Equal(t, "vip", *p.Notes)

	s := c.Snapshot()
	assert.Equal(t, Ready, s.State)
	assert.False(t, s.FormOpen)
	assert.False(t, s.Busy)
	require.Len(t, s.Customers, 2)
	assert.Equal(t, "Beta", s.Customers[0].Name)
	assert.Equal(t, 2, api.lists)
}

func TestController_EditSendsAllFields(t *testing.T) {
	api := newFakeAPI(acme())
	c := mounted(t, api)

	require.NoError(t, c.BeginEdit("c1"))
	f, open := c.Form()
	require.True(t, open)
	assert.Equal(t, Form{Name: "Acme", Email: "a@acme.test"}, f)

	f.Name = "Acme Corp"
	f.Email = ""
	require.NoError(t, c.SetForm(f))
	require.NoError(t, c.Submit(context.Background()))

	p := api.updates["c1"]
	assert.Equal(t, "Acme Corp", *p.Name)
	require.NotNil(t, p.Email)
	assert.Equal(t, "", *p.Email)

	s := c.Snapshot()
	assert.Equal(t, "Acme Corp", s.Customers[0].Name)
	assert.Empty(t, s.EditingID)
}

func TestController_SubmitFailureKeepsFormAndSet(t *testing.T) {
	api := newFakeAPI(acme())
	c := mounted(t, api)
	api.writeErr = &client.APIError{Status: 400, Message: "Name is required"}

	c.BeginCreate()
	require.NoError(t, c.SetForm(Form{Name: "Beta"}))

	err := c.Submit(context.Background())
	require.EqualError(t, err, "Name is required")

	s := c.Snapshot()
	assert.True(t, s.FormOpen)
	assert.Equal(t, "Beta", s.Form.Name)
	assert.False(t, s.Busy)
	assert.Len(t, s.Customers, 1)
	assert.Equal(t, 1, api.lists)
}

func TestController_SubmitValidatesLocally(t *testing.T) {
	api := newFakeAPI()
	c := mounted(t, api)

	assert.ErrorIs(t, c.Submit(context.Background()), ErrFormClosed)

	c.BeginCreate()
	require.NoError(t, c.SetForm(Form{Name: "   "}))
	assert.ErrorIs(t, c.Submit(context.Background()), ErrNameRequired)
	assert.Empty(t, api.creates)

	c.Cancel()
	_, open := c.Form()
	assert.False(t, open)
	assert.ErrorIs(t, c.SetForm(Form{Name: "x"}), ErrFormClosed)
}

func TestController_RefetchFailureAfterWrite(t *testing.T) {
	api := newFakeAPI(acme())
	c := mounted(t, api)

	c.BeginCreate()
	require.NoError(t, c.SetForm(Form{Name: "Beta"}))
	api.listErr = errors.New("connection reset")

	require.Error(t, c.Submit(context.Background()))

	s := c.Snapshot()
	assert.Equal(t, Error, s.State)
	assert.Equal(t, "connection reset", s.Error)
	assert.False(t, s.FormOpen)
	assert.False(t, s.Busy)
	require.Len(t, s.Customers, 1)
	assert.Equal(t, "Acme", s.Customers[0].Name)
}

func TestController_DeleteConfirm(t *testing.T) {
	api := newFakeAPI(acme())
	c := mounted(t, api)

	var asked model.Customer
	sent, err := c.Delete(context.Background(), "c1", func(m model.Customer) bool {
		asked = m
		return false
	})
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Equal(t, "Acme", asked.Name)
	assert.Empty(t, api.deletes)

	sent, err = c.Delete(context.Background(), "c1", func(model.Customer) bool { return true })
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Equal(t, []string{"c1"}, api.deletes)
	assert.Empty(t, c.Snapshot().Customers)

	_, err = c.Delete(context.Background(), "c1", nil)
	assert.ErrorIs(t, err, ErrUnknownCustomer)
}

func TestController_DeleteClosesFormForDeletedRecord(t *testing.T) {
	api := newFakeAPI(acme(), model.Customer{ID: "c2", Name: "Beta", OrgID: "org_1"})
	c := mounted(t, api)

	require.NoError(t, c.BeginEdit("c2"))
	_, err := c.Delete(context.Background(), "c1", func(model.Customer) bool { return true })
	require.NoError(t, err)
	assert.Equal(t, "c2", c.Snapshot().EditingID)

	_, err = c.Delete(context.Background(), "c2", func(model.Customer) bool { return true })
	require.NoError(t, err)

	s := c.Snapshot()
	assert.False(t, s.FormOpen)
	assert.Empty(t, s.EditingID)
	assert.ErrorIs(t, c.Submit(context.Background()), ErrFormClosed)
	assert.Empty(t, api.updates)
}

func TestController_InFlightGuard(t *testing.T) {
	api := newFakeAPI(acme())
	c := mounted(t, api)

	release := make(chan struct{})
	entered := make(chan struct{})
	api.writeHook = func() {
		close(entered)
		<-release
	}

	c.BeginCreate()
	require.NoError(t, c.SetForm(Form{Name: "Beta"}))

	done := make(chan error)
	go func() { done <- c.Submit(context.Background()) }()
	<-entered

	assert.True(t, c.Snapshot().Busy)
	assert.False(t, c.CanSubmit())
	_, err := c.Delete(context.Background(), "c1", func(model.Customer) bool { return true })
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("submit did not finish")
	}
	assert.False(t, c.Snapshot().Busy)
	assert.Len(t, api.creates, 1)
}

func TestController_Overview(t *testing.T) {
	now := time.Date(2024, time.March, 20, 12, 0, 0, 0, time.UTC)
	created := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC).UnixMilli()

	c := mounted(t, newFakeAPI(model.Customer{ID: "c1", Name: "Acme", CreatedAt: created}))

	o := c.Overview(now, constRand(0.5))
	assert.Equal(t, 1, o.Total)
	assert.Equal(t, 1, o.NewThisMonth)
	assert.Len(t, o.SignupsByDay, 31)
}

type constRand float64

func (r constRand) Float64() float64 { return float64(r) }

func TestState_String(t *testing.T) {
	assert.Equal(t, "no_tenant", NoTenant.String())
	assert.Equal(t, "ready", Ready.String())
}
