package model

import (
	"bytes"
	"encoding/json"
	"strings"
)

// MaxListSize caps the number of customers returned by a list
const MaxListSize = 100

// Customer is a tenant-owned customer record. Timestamps are epoch milliseconds.
type Customer struct {
	ID        string  `json:"id" gorm:"primaryKey;type:varchar(64)"`
	Name      string  `json:"name" gorm:"type:varchar(255);not null"`
	Email     *string `json:"email" gorm:"type:varchar(255)"`
	Phone     *string `json:"phone" gorm:"type:varchar(64)"`
	Notes     *string `json:"notes" gorm:"type:text"`
	CreatedAt int64   `json:"createdAt" gorm:"not null;autoCreateTime:false"`
	UpdatedAt int64   `json:"updatedAt" gorm:"not null;autoUpdateTime:false;index:idx_customers_org_updated,priority:2"`
	OrgID     string  `json:"orgId" gorm:"type:varchar(64);not null;index:idx_customers_org_updated,priority:1"`
}

// OptionalString is a JSON string field that remembers whether it was present.
// Absent leaves Set false; an explicit null sets Set with a nil Value.
type OptionalString struct {
	Set   bool
	Value *string
}

// UnmarshalJSON is only called when the key is present in the payload
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

// Some returns a present OptionalString holding s
func Some(s string) OptionalString {
	return OptionalString{Set: true, Value: &s}
}

// Null returns a present OptionalString holding an explicit null
func Null() OptionalString {
	return OptionalString{Set: true}
}

// Trimmed returns the trimmed value, or "" when absent or null
func (o OptionalString) Trimmed() string {
	if o.Value == nil {
		return ""
	}
	return strings.TrimSpace(*o.Value)
}

// Normalized returns the trimmed value, or nil when absent, null or blank
func (o OptionalString) Normalized() *string {
	v := o.Trimmed()
	if v == "" {
		return nil
	}
	return &v
}

// CustomerFields is the create/update payload. Any other keys, orgId included, are ignored.
type CustomerFields struct {
	Name  OptionalString `json:"name"`
	Email OptionalString `json:"email"`
	Phone OptionalString `json:"phone"`
	Notes OptionalString `json:"notes"`
}

// CustomerPatch holds the normalized columns of a partial update.
// A nil map entry value means the column is cleared.
type CustomerPatch struct {
	Name      *string
	Fields    map[string]*string
	UpdatedAt int64
}

// Columns returns the column/value pairs to write, updated_at included
func (p CustomerPatch) Columns() map[string]interface{} {
	cols := map[string]interface{}{"updated_at": p.UpdatedAt}
	if p.Name != nil {
		cols["name"] = *p.Name
	}
	for col, v := range p.Fields {
		if v == nil {
			cols[col] = nil
		} else {
			cols[col] = *v
		}
	}
	return cols
}

// ListResponse is the body of a list call
type ListResponse struct {
	Customers []Customer `json:"customers"`
}

// ErrorResponse is the body of every failed call
type ErrorResponse struct {
	Error string `json:"error"`
}

// DeleteResponse is the body of a successful delete
type DeleteResponse struct {
	OK bool `json:"ok"`
}
