package clinicapi

import "context"

// ListTreatments fetches the treatment catalog.
func (c *Client) ListTreatments(ctx context.Context) ([]Treatment, error) {
	var treatments []Treatment
	if err := c.get(ctx, "/treatments/", nil, &treatments); err != nil {
		return nil, err
	}
	return treatments, nil
}

// ListDrugs fetches the drug inventory.
func (c *Client) ListDrugs(ctx context.Context) ([]Drug, error) {
	var drugs []Drug
	if err := c.get(ctx, "/drugs/", nil, &drugs); err != nil {
		return nil, err
	}
	return drugs, nil
}

// ListInvoices fetches all invoices.
func (c *Client) ListInvoices(ctx context.Context) ([]Invoice, error) {
	var invoices []Invoice
	if err := c.get(ctx, "/invoices/", nil, &invoices); err != nil {
		return nil, err
	}
	return invoices, nil
}
