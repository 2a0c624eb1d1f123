package clinicapi

import (
	"context"
	"fmt"
)

// ListDentists fetches all dentists.
func (c *Client) ListDentists(ctx context.Context) ([]Dentist, error) {
	var dentists []Dentist
	if err := c.get(ctx, "/dentists/", nil, &dentists); err != nil {
		return nil, err
	}
	return dentists, nil
}

// GetDentist fetches a single dentist by id.
func (c *Client) GetDentist(ctx context.Context, id int) (*Dentist, error) {
	var dentist Dentist
	if err := c.get(ctx, fmt.Sprintf("/dentists/%d/", id), nil, &dentist); err != nil {
		return nil, err
	}
	return &dentist, nil
}

// CreateDentist creates a new dentist.
func (c *Client) CreateDentist(ctx context.Context, dentist Dentist) (*Dentist, error) {
	var created Dentist
	if err := c.post(ctx, "/dentists/", dentist, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateDentist applies a partial update to a dentist.
func (c *Client) UpdateDentist(ctx context.Context, id int, fields map[string]interface{}) (*Dentist, error) {
	var updated Dentist
	if err := c.patch(ctx, fmt.Sprintf("/dentists/%d/", id), fields, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteDentist removes a dentist.
func (c *Client) DeleteDentist(ctx context.Context, id int) error {
	return c.delete(ctx, fmt.Sprintf("/dentists/%d/", id))
}
