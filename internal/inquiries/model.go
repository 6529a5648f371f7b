package inquiries

import (
	"errors"
	"strings"
	"time"
)

// Status values for an inquiry.
const (
	StatusNew       = "New"
	StatusLost      = "Lost"
	StatusConverted = "Converted"
)

// ErrInquiryNotFound is returned when no inquiry matches the lookup.
var ErrInquiryNotFound = errors.New("inquiries: inquiry not found")

// Inquiry is a prospective client's initial contact request. Lost inquiries
// that never converted are hard-deleted after the 2-year retention window.
type Inquiry struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Email              string    `json:"email"`
	Phone              string    `json:"phone"`
	Message            string    `json:"message"`
	Status             string    `json:"status"`
	ConvertedToClient  bool      `json:"converted_to_client"`
	InquiryDate        time.Time `json:"inquiry_date"`
}

// CreateRequest is the public intake payload.
type CreateRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// Validate checks required intake fields.
func (r *CreateRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	if strings.TrimSpace(r.Email) == "" && strings.TrimSpace(r.Phone) == "" {
		return errors.New("email or phone is required")
	}
	return nil
}
