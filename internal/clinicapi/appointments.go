package clinicapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// AppointmentFilter narrows an appointment listing.
type AppointmentFilter struct {
	PatientID int
	DentistID int
}

// ListAppointments fetches appointments, optionally filtered.
func (c *Client) ListAppointments(ctx context.Context, filter AppointmentFilter) ([]Appointment, error) {
	query := url.Values{}
	if filter.PatientID != 0 {
		query.Set("patient", strconv.Itoa(filter.PatientID))
	}
	if filter.DentistID != 0 {
		query.Set("dentist", strconv.Itoa(filter.DentistID))
	}

	var appointments []Appointment
	if err := c.get(ctx, "/appointments/", query, &appointments); err != nil {
		return nil, err
	}
	return appointments, nil
}

// CreateAppointment books a new appointment.
func (c *Client) CreateAppointment(ctx context.Context, appointment Appointment) (*Appointment, error) {
	var created Appointment
	if err := c.post(ctx, "/appointments/", appointment, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateAppointment applies a partial update to an appointment.
func (c *Client) UpdateAppointment(ctx context.Context, id int, fields map[string]interface{}) (*Appointment, error) {
	var updated Appointment
	if err := c.patch(ctx, fmt.Sprintf("/appointments/%d/", id), fields, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteAppointment cancels an appointment.
func (c *Client) DeleteAppointment(ctx context.Context, id int) error {
	return c.delete(ctx, fmt.Sprintf("/appointments/%d/", id))
}
