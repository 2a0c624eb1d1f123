package clinicapi

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// LoginRequest is the auth endpoint's payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates against the clinic backend and returns the caller's
// role and id.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var result LoginResult
	if err := c.post(ctx, "/auth/login/", LoginRequest{Email: email, Password: password}, &result); err != nil {
		return nil, err
	}

	log.Info().
		Str("role", result.Role).
		Int("user_id", result.ID).
		Msg("Login succeeded")

	return &result, nil
}

// SignupPatient registers a new patient account.
func (c *Client) SignupPatient(ctx context.Context, payload map[string]interface{}) (*Patient, error) {
	var created Patient
	if err := c.post(ctx, "/signup/patient/", payload, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// SignupDentist registers a new dentist account.
func (c *Client) SignupDentist(ctx context.Context, payload map[string]interface{}) (*Dentist, error) {
	var created Dentist
	if err := c.post(ctx, "/signup/dentist/", payload, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePatientPassword updates a patient's password.
func (c *Client) ChangePatientPassword(ctx context.Context, id int, current, newPassword string) error {
	return c.post(ctx, fmt.Sprintf("/patients/%d/change_password/", id), changePasswordRequest{
		CurrentPassword: current,
		NewPassword:     newPassword,
	}, nil)
}

// ChangeDentistPassword updates a dentist's password.
func (c *Client) ChangeDentistPassword(ctx context.Context, id int, current, newPassword string) error {
	return c.post(ctx, fmt.Sprintf("/dentists/%d/change_password/", id), changePasswordRequest{
		CurrentPassword: current,
		NewPassword:     newPassword,
	}, nil)
}
