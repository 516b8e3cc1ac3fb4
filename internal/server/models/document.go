// Package models defines server-side records persisted in the database.
package models

import "time"

// Prescription is one uploaded prescription. Optional fields are nil when the
// client did not send them.
type Prescription struct {
	ID         int64
	UserID     int64
	Title      *string
	Department *string
	DoctorName *string
	VisitDate  *time.Time
	Shared     *bool
	Deleted    bool
}

// Report is one uploaded medical report, optionally linked to a prescription.
type Report struct {
	ID             int64
	UserID         int64
	PrescriptionID *int64
	Title          *string
	TestName       *string
	DeliveryDate   *time.Time
	Shared         *bool
	Deleted        bool
}

// DocumentKind selects the parent table of an image row.
type DocumentKind string

const (
	KindPrescription DocumentKind = "prescription"
	KindReport       DocumentKind = "report"
)

// Owner is the ownership view of a parent record used before appending.
type Owner struct {
	ID      int64
	UserID  int64
	Deleted bool
}
