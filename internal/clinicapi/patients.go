package clinicapi

import (
	"context"
	"fmt"
)

// ListPatients fetches all patients.
func (c *Client) ListPatients(ctx context.Context) ([]Patient, error) {
	var patients []Patient
	if err := c.get(ctx, "/patients/", nil, &patients); err != nil {
		return nil, err
	}
	return patients, nil
}

// GetPatient fetches a single patient by id.
func (c *Client) GetPatient(ctx context.Context, id int) (*Patient, error) {
	var patient Patient
	if err := c.get(ctx, fmt.Sprintf("/patients/%d/", id), nil, &patient); err != nil {
		return nil, err
	}
	return &patient, nil
}

// CreatePatient creates a new patient.
func (c *Client) CreatePatient(ctx context.Context, patient Patient) (*Patient, error) {
	var created Patient
	if err := c.post(ctx, "/patients/", patient, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdatePatientChronic applies a partial update to a patient's chronic
// history fields. This is the first of the two EMR save writes.
func (c *Client) UpdatePatientChronic(ctx context.Context, id int, update ChronicUpdate) error {
	return c.patch(ctx, fmt.Sprintf("/patients/%d/", id), update, nil)
}

// DeletePatient removes a patient.
func (c *Client) DeletePatient(ctx context.Context, id int) error {
	return c.delete(ctx, fmt.Sprintf("/patients/%d/", id))
}
