// Package customersync keeps a screen's view of the customer list in step
// with the API. Every successful write is followed by a full reload; the
// local set is never patched in place.
package customersync

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"customer-service/internal/model"
	"customer-service/pkg/client"
	"customer-service/pkg/dashboard"

	"go.uber.org/zap"
)

// NoTenantMessage is shown when the user has no active organization
const NoTenantMessage = "Select an organization to view customers."

const loadFailedMessage = "Failed to load customers"

var (
	// ErrBusy is returned when a save or delete is already in flight
	ErrBusy = errors.New("another change is still in progress")
	// ErrFormClosed is returned when no create or edit is in progress
	ErrFormClosed = errors.New("no customer form is open")
	// ErrNameRequired is returned by Submit when the form name is blank
	ErrNameRequired = errors.New("name is required")
	// ErrUnknownCustomer is returned for an id that is not in the loaded set
	ErrUnknownCustomer = errors.New("customer is not in the loaded list")
	// ErrTenantMismatch is returned when the API answers for another organization
	ErrTenantMismatch = errors.New("the API credentials belong to a different organization")
)

// API is the subset of the customers API the controller drives. The server
// resolves the organization from the API's credentials, which must match the
// tenant given to SetTenant.
type API interface {
	List(ctx context.Context) ([]model.Customer, error)
	Create(ctx context.Context, payload client.Payload) (*model.Customer, error)
	Update(ctx context.Context, id string, payload client.Payload) (*model.Customer, error)
	Delete(ctx context.Context, id string) error
}

// State is the lifecycle of the loaded record set
type State int

const (
	Uninitialized State = iota
	Loading
	Ready
	Error
	NoTenant
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Error:
		return "error"
	case NoTenant:
		return "no_tenant"
	default:
		return "unknown"
	}
}

// Form is the create/edit buffer. It is separate from the record set.
type Form struct {
	Name  string
	Email string
	Phone string
	Notes string
}

// Snapshot is a copy of the controller state safe to read without locking
type Snapshot struct {
	State     State
	Tenant    string
	Customers []model.Customer
	Error     string
	Form      Form
	FormOpen  bool
	EditingID string
	Busy      bool
}

// Controller is the per-screen synchronization state machine
type Controller struct {
	api API
	log *zap.Logger

	mu         sync.Mutex
	state      State
	tenant     string
	customers  []model.Customer
	errMsg     string
	form       *Form
	editing    *model.Customer
	busy       bool
	generation uint64
}

// NewController creates a controller in the Uninitialized state
func NewController(api API, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{api: api, log: log, customers: []model.Customer{}}
}

// SetTenant mounts the screen for orgID, or switches to it, and loads its records
func (c *Controller) SetTenant(ctx context.Context, orgID string) error {
	c.mu.Lock()
	c.generation++
	c.tenant = orgID
	c.form, c.editing = nil, nil
	if orgID == "" {
		c.state = NoTenant
		c.errMsg = NoTenantMessage
		c.customers = []model.Customer{}
		c.mu.Unlock()
		return nil
	}
	c.state = Loading
	c.errMsg = ""
	gen := c.generation
	c.mu.Unlock()

	return c.load(ctx, gen)
}

// Refresh reloads the current tenant's records
func (c *Controller) Refresh(ctx context.Context) error {
	gen, ok := c.beginLoad()
	if !ok {
		return nil
	}
	return c.load(ctx, gen)
}

// beginLoad enters Loading for a reload, reporting false when there is no tenant
func (c *Controller) beginLoad() (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tenant == "" {
		c.state = NoTenant
		c.errMsg = NoTenantMessage
		return 0, false
	}
	c.generation++
	c.state = Loading
	return c.generation, true
}

// load fetches the list and applies it unless a newer load has started since
func (c *Controller) load(ctx context.Context, gen uint64) error {
	customers, err := c.api.List(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		c.log.Debug("Dropping stale customer list", zap.Uint64("generation", gen))
		return nil
	}
	if err != nil {
		c.state = Error
		c.errMsg = messageOf(err, loadFailedMessage)
		c.log.Warn("Failed to load customers", zap.String("org_id", c.tenant), zap.Error(err))
		return err
	}
	if foreign, ok := foreignRecord(customers, c.tenant); ok {
		c.state = Error
		c.errMsg = ErrTenantMismatch.Error()
		c.customers = []model.Customer{}
		c.log.Warn("Customer list belongs to another organization",
			zap.String("org_id", c.tenant), zap.String("record_org_id", foreign.OrgID))
		return ErrTenantMismatch
	}
	if customers == nil {
		customers = []model.Customer{}
	}
	c.customers = customers
	c.state = Ready
	c.errMsg = ""
	return nil
}

// BeginCreate opens an empty form for a new customer
func (c *Controller) BeginCreate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.editing = nil
	c.form = &Form{}
}

// BeginEdit opens the form prefilled from the loaded record with id
func (c *Controller) BeginEdit(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	record, ok := c.find(id)
	if !ok {
		return ErrUnknownCustomer
	}
	c.editing = &record
	c.form = &Form{
		Name:  record.Name,
		Email: deref(record.Email),
		Phone: deref(record.Phone),
		Notes: deref(record.Notes),
	}
	return nil
}

// SetForm replaces the form buffer
func (c *Controller) SetForm(f Form) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.form == nil {
		return ErrFormClosed
	}
	*c.form = f
	return nil
}

// Form returns the form buffer and whether a form is open
func (c *Controller) Form() (Form, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.form == nil {
		return Form{}, false
	}
	return *c.form, true
}

// Cancel closes the form without sending anything
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form, c.editing = nil, nil
}

// CanSubmit reports whether Submit would send a request
func (c *Controller) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.busy && c.form != nil && strings.TrimSpace(c.form.Name) != ""
}

// Submit sends the form as a create or an update, then reloads the list.
// On a failed write the form stays open and the record set is untouched.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return ErrBusy
	}
	if c.form == nil {
		c.mu.Unlock()
		return ErrFormClosed
	}
	if strings.TrimSpace(c.form.Name) == "" {
		c.mu.Unlock()
		return ErrNameRequired
	}
	c.busy = true
	form := *c.form
	var editingID string
	if c.editing != nil {
		editingID = c.editing.ID
	}
	c.mu.Unlock()

	var err error
	if editingID == "" {
		_, err = c.api.Create(ctx, createPayload(form))
	} else {
		_, err = c.api.Update(ctx, editingID, updatePayload(form))
	}
	if err != nil {
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
		c.log.Warn("Failed to save customer", zap.String("customer_id", editingID), zap.Error(err))
		return err
	}

	// the write is committed; close the form before reloading
	c.mu.Lock()
	c.form, c.editing = nil, nil
	c.mu.Unlock()

	return c.refetchAfterWrite(ctx)
}

// Delete asks confirm about the loaded record with id and deletes it if accepted.
// It reports whether a delete was sent.
func (c *Controller) Delete(ctx context.Context, id string, confirm func(model.Customer) bool) (bool, error) {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return false, ErrBusy
	}
	record, ok := c.find(id)
	c.mu.Unlock()
	if !ok {
		return false, ErrUnknownCustomer
	}

	if confirm != nil && !confirm(record) {
		return false, nil
	}

	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return false, ErrBusy
	}
	c.busy = true
	c.mu.Unlock()

	if err := c.api.Delete(ctx, id); err != nil {
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
		c.log.Warn("Failed to delete customer", zap.String("customer_id", id), zap.Error(err))
		return true, err
	}

	c.mu.Lock()
	if c.editing != nil && c.editing.ID == id {
		c.form, c.editing = nil, nil
	}
	c.mu.Unlock()

	return true, c.refetchAfterWrite(ctx)
}

// refetchAfterWrite reloads the list and then releases the in-flight guard
func (c *Controller) refetchAfterWrite(ctx context.Context) error {
	defer func() {
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
	}()

	gen, ok := c.beginLoad()
	if !ok {
		return nil
	}
	return c.load(ctx, gen)
}

// Snapshot returns a copy of the current state
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		State:     c.state,
		Tenant:    c.tenant,
		Customers: append([]model.Customer(nil), c.customers...),
		Error:     c.errMsg,
		Busy:      c.busy,
	}
	if c.form != nil {
		s.Form, s.FormOpen = *c.form, true
	}
	if c.editing != nil {
		s.EditingID = c.editing.ID
	}
	return s
}

// Overview derives the dashboard from the loaded records
func (c *Controller) Overview(now time.Time, rng dashboard.Rand) dashboard.Overview {
	c.mu.Lock()
	customers := append([]model.Customer(nil), c.customers...)
	c.mu.Unlock()

	return dashboard.Build(customers, now, rng)
}

// foreignRecord returns the first record stamped with an organization other than tenant
func foreignRecord(customers []model.Customer, tenant string) (model.Customer, bool) {
	for _, record := range customers {
		if record.OrgID != "" && record.OrgID != tenant {
			return record, true
		}
	}
	return model.Customer{}, false
}

func (c *Controller) find(id string) (model.Customer, bool) {
	for _, record := range c.customers {
		if record.ID == id {
			return record, true
		}
	}
	return model.Customer{}, false
}

// createPayload leaves blank optional fields out of the request
func createPayload(f Form) client.Payload {
	name := f.Name
	return client.Payload{
		Name:  &name,
		Email: nonEmpty(f.Email),
		Phone: nonEmpty(f.Phone),
		Notes: nonEmpty(f.Notes),
	}
}

// updatePayload sends every field so that a cleared input clears the stored value
func updatePayload(f Form) client.Payload {
	name, email, phone, notes := f.Name, f.Email, f.Phone, f.Notes
	return client.Payload{Name: &name, Email: &email, Phone: &phone, Notes: &notes}
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func messageOf(err error, fallback string) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}
