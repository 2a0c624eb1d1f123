package clinicapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// RecordFilter narrows a medical record listing.
type RecordFilter struct {
	PatientID int
}

// ListMedicalRecords fetches medical records, optionally filtered by patient.
// The backend's ordering is not trusted; callers that need the most recent
// record must sort by record date themselves.
func (c *Client) ListMedicalRecords(ctx context.Context, filter RecordFilter) ([]MedicalRecord, error) {
	query := url.Values{}
	if filter.PatientID != 0 {
		query.Set("patient", strconv.Itoa(filter.PatientID))
	}

	var records []MedicalRecord
	if err := c.get(ctx, "/medicalrecords/", query, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// GetMedicalRecord fetches a single medical record by id.
func (c *Client) GetMedicalRecord(ctx context.Context, id int) (*MedicalRecord, error) {
	var record MedicalRecord
	if err := c.get(ctx, fmt.Sprintf("/medicalrecords/%d/", id), nil, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// CreateMedicalRecord creates a new encounter record. This is the second of
// the two EMR save writes.
func (c *Client) CreateMedicalRecord(ctx context.Context, record MedicalRecord) (*MedicalRecord, error) {
	var created MedicalRecord
	if err := c.post(ctx, "/medicalrecords/", record, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateMedicalRecord applies a partial update to an existing record.
func (c *Client) UpdateMedicalRecord(ctx context.Context, id int, fields map[string]interface{}) (*MedicalRecord, error) {
	var updated MedicalRecord
	if err := c.patch(ctx, fmt.Sprintf("/medicalrecords/%d/", id), fields, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteMedicalRecord removes a record.
func (c *Client) DeleteMedicalRecord(ctx context.Context, id int) error {
	return c.delete(ctx, fmt.Sprintf("/medicalrecords/%d/", id))
}
