// Package domain contains the core entities shared across modules.
package domain

import "time"

// AuditRecord holds the identity and bookkeeping fields every stored entity carries.
type AuditRecord struct {
	ID        string     `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// IsDeleted reports whether the record has been logically deleted.
func (r *AuditRecord) IsDeleted() bool {
	return r.DeletedAt != nil
}

// CompanyScoped is an AuditRecord owned by a single tenant.
type CompanyScoped struct {
	AuditRecord
	CompanyID string `json:"company_id"`
}
