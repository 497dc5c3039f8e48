// internal/errors/errors.go
package appErrors

import "fmt"

// ErrCampaignNotFound is a sentinel error
type ErrCampaignNotFound struct {
	CampaignID int
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign with ID %d not found", e.CampaignID)
}

func NewCampaignNotFound(id int) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

// ErrNoEligibleRecipients means the fan-out filter matched nobody who is
// opted in. The campaign is not created.
type ErrNoEligibleRecipients struct{}

func (e *ErrNoEligibleRecipients) Error() string {
	return "no eligible recipients match the campaign filter"
}

func NewNoEligibleRecipients() error {
	return &ErrNoEligibleRecipients{}
}

// ErrRecipientNotFound is a sentinel error
type ErrRecipientNotFound struct {
	RecipientID int
}

func (e *ErrRecipientNotFound) Error() string {
	return fmt.Sprintf("recipient with ID %d not found", e.RecipientID)
}

func NewRecipientNotFound(id int) error {
	return &ErrRecipientNotFound{RecipientID: id}
}

// ErrRecipientExists signals a duplicate phone number on create/import.
type ErrRecipientExists struct {
	Phone string
}

func (e *ErrRecipientExists) Error() string {
	return fmt.Sprintf("recipient with phone %s already exists", e.Phone)
}

func NewRecipientExists(phone string) error {
	return &ErrRecipientExists{Phone: phone}
}

// ErrInvalidPhone signals a phone number that is not E.164-shaped.
type ErrInvalidPhone struct {
	Phone string
}

func (e *ErrInvalidPhone) Error() string {
	return fmt.Sprintf("invalid phone number: %q", e.Phone)
}

func NewInvalidPhone(phone string) error {
	return &ErrInvalidPhone{Phone: phone}
}
