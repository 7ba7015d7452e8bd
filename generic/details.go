package generic

import (
	"encoding/json"
	"time"
)

// recordDetails is the stored JSON form of the kind-specific display fields.
type recordDetails struct {
	Sale    *saleDetailsJSON `json:"sale,omitempty"`
	Payment *PaymentDetails  `json:"payment,omitempty"`
}

type saleDetailsJSON struct {
	InvoiceNumber string     `json:"invoice_number,omitempty"`
	Items         []SaleItem `json:"items,omitempty"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	Status        string     `json:"status,omitempty"`
}

// DetailsJSON encodes the record's sale/payment fields for storage.
// It returns nil when the record has none.
func (r TransactionRecord) DetailsJSON() ([]byte, error) {
	if r.Sale == nil && r.Payment == nil {
		return nil, nil
	}
	d := recordDetails{Payment: r.Payment}
	if r.Sale != nil {
		d.Sale = &saleDetailsJSON{
			InvoiceNumber: r.Sale.InvoiceNumber,
			Items:         r.Sale.Items,
			Status:        r.Sale.Status,
		}
		if !r.Sale.DueDate.IsZero() {
			due := r.Sale.DueDate.UTC()
			d.Sale.DueDate = &due
		}
	}
	return json.Marshal(d)
}

// SetDetailsJSON restores what DetailsJSON produced. Empty input is a no-op.
func (r *TransactionRecord) SetDetailsJSON(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	var d recordDetails
	if err := json.Unmarshal(b, &d); err != nil {
		return err
	}
	r.Payment = d.Payment
	if d.Sale != nil {
		r.Sale = &SaleDetails{
			InvoiceNumber: d.Sale.InvoiceNumber,
			Items:         d.Sale.Items,
			Status:        d.Sale.Status,
		}
		if d.Sale.DueDate != nil {
			r.Sale.DueDate = *d.Sale.DueDate
		}
	}
	return nil
}
