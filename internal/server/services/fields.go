package services

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/meduploads/internal/common"
	"github.com/dmitrijs2005/meduploads/internal/server/imaging"
	"github.com/dmitrijs2005/meduploads/internal/server/models"
)

// Form field names.
const (
	FieldMemberID       = "member_id"
	FieldPrescriptionID = "prescription_id"
	FieldReportID       = "report_id"
	FieldTitle          = "title"
	FieldDepartment     = "department"
	FieldDoctorName     = "doctor_name"
	FieldTestName       = "test_name"
	FieldVisitDate      = "visit_date"
	FieldDeliveryDate   = "delivery_date"
	FieldShared         = "shared"
)

const (
	maxTextLen = 255
	dateLayout = "2006-01-02"
)

var (
	trueTokens  = map[string]bool{"true": true, "1": true, "yes": true, "y": true, "on": true}
	falseTokens = map[string]bool{"false": true, "0": true, "no": true, "n": true, "off": true}

	allowedExt = map[string]bool{".jpeg": true, ".jpg": true, ".png": true, ".webp": true}
)

// fieldReader parses raw form values and remembers the first failure, so
// callers can read every field and check once.
type fieldReader struct {
	op     string
	fields map[string]string
	err    error
}

func newFieldReader(op string, fields map[string]string) *fieldReader {
	return &fieldReader{op: op, fields: fields}
}

func (r *fieldReader) fail(format string, args ...any) {
	if r.err == nil {
		r.err = common.Errorf(common.KindValidation, r.op, format, args...)
	}
}

func (r *fieldReader) raw(name string) (string, bool) {
	v, ok := r.fields[name]
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// ID parses a required positive integer.
func (r *fieldReader) ID(name string) int64 {
	v, ok := r.raw(name)
	if !ok {
		r.fail("%s is required", name)
		return 0
	}
	return r.parseID(name, v)
}

// OptionalID parses a positive integer if present.
func (r *fieldReader) OptionalID(name string) *int64 {
	v, ok := r.raw(name)
	if !ok {
		return nil
	}
	id := r.parseID(name, v)
	return &id
}

func (r *fieldReader) parseID(name, v string) int64 {
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		r.fail("%s must be a positive integer", name)
		return 0
	}
	return id
}

// Text returns the trimmed value or nil when empty.
func (r *fieldReader) Text(name string) *string {
	v, ok := r.raw(name)
	if !ok {
		return nil
	}
	if utf8.RuneCountInString(v) > maxTextLen {
		r.fail("%s must be at most %d characters", name, maxTextLen)
		return nil
	}
	return &v
}

// Date parses an optional YYYY-MM-DD value.
func (r *fieldReader) Date(name string) *time.Time {
	v, ok := r.raw(name)
	if !ok {
		return nil
	}
	d, err := time.Parse(dateLayout, v)
	if err != nil {
		r.fail("%s must be a date in YYYY-MM-DD format", name)
		return nil
	}
	return &d
}

// Bool parses an optional boolean-like token.
func (r *fieldReader) Bool(name string) *bool {
	v, ok := r.raw(name)
	if !ok {
		return nil
	}
	v = strings.ToLower(v)
	switch {
	case trueTokens[v]:
		b := true
		return &b
	case falseTokens[v]:
		b := false
		return &b
	default:
		r.fail("%s must be a boolean", name)
		return nil
	}
}

func (r *fieldReader) Err() error { return r.err }

func parsePrescription(fields map[string]string) (*models.Prescription, error) {
	r := newFieldReader("upload prescription", fields)
	p := &models.Prescription{
		UserID:     r.ID(FieldMemberID),
		Title:      r.Text(FieldTitle),
		Department: r.Text(FieldDepartment),
		DoctorName: r.Text(FieldDoctorName),
		VisitDate:  r.Date(FieldVisitDate),
		Shared:     r.Bool(FieldShared),
	}
	return p, r.Err()
}

func parseReport(fields map[string]string) (*models.Report, error) {
	r := newFieldReader("upload report", fields)
	rep := &models.Report{
		UserID:         r.ID(FieldMemberID),
		PrescriptionID: r.OptionalID(FieldPrescriptionID),
		Title:          r.Text(FieldTitle),
		TestName:       r.Text(FieldTestName),
		DeliveryDate:   r.Date(FieldDeliveryDate),
		Shared:         r.Bool(FieldShared),
	}
	return rep, r.Err()
}

// parseParent reads the member id and the id of an existing parent record.
func parseParent(op string, fields map[string]string, parentField string) (memberID, parentID int64, err error) {
	r := newFieldReader(op, fields)
	memberID = r.ID(FieldMemberID)
	parentID = r.ID(parentField)
	return memberID, parentID, r.Err()
}

func parseMember(op string, fields map[string]string) (int64, error) {
	r := newFieldReader(op, fields)
	id := r.ID(FieldMemberID)
	return id, r.Err()
}

// validateFiles enforces batch size, per-file size and the extension whitelist.
func validateFiles(op string, files []imaging.Source, limits Limits) error {
	if len(files) == 0 {
		return common.E(common.KindValidation, op, common.ErrNoFiles)
	}
	if len(files) > limits.MaxFiles {
		return common.Errorf(common.KindCapacity, op, "%w: %d > %d", common.ErrTooManyFiles, len(files), limits.MaxFiles)
	}
	for i, f := range files {
		if int64(len(f.Data)) > limits.MaxFileBytes {
			return common.Errorf(common.KindCapacity, op, "%w: file %d (%s) exceeds %d bytes", common.ErrFileTooLarge, i, f.Filename, limits.MaxFileBytes)
		}
		if len(f.Data) == 0 {
			return common.Errorf(common.KindValidation, op, "file %d (%s) is empty", i, f.Filename)
		}
		if !allowedExt[strings.ToLower(filepath.Ext(f.Filename))] {
			return common.Errorf(common.KindValidation, op, "%w: file %d (%s)", common.ErrUnsupportedFormat, i, f.Filename)
		}
	}
	return nil
}
