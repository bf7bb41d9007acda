package models

import (
	"encoding/json"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/common"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// Date is a calendar date serialized as "YYYY-MM-DD".
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(DateLayout))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

// Contact is an address-book entry owned by exactly one user.
type Contact struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Birthday  Date      `json:"birthday"`
	Notes     *string   `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ContactInput is the client-supplied part of a contact, used for both
// create and full update.
type ContactInput struct {
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Email     string  `json:"email"`
	Phone     string  `json:"phone"`
	Birthday  Date    `json:"birthday"`
	Notes     *string `json:"notes"`
}

// Normalize trims surrounding whitespace from text fields.
func (in *ContactInput) Normalize() {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
}

// Validate checks required fields. Errors wrap common.ErrorValidation.
func (in *ContactInput) Validate() error {
	switch {
	case in.FirstName == "":
		return fmt.Errorf("%w: first_name is required", common.ErrorValidation)
	case in.LastName == "":
		return fmt.Errorf("%w: last_name is required", common.ErrorValidation)
	case in.Phone == "":
		return fmt.Errorf("%w: phone is required", common.ErrorValidation)
	case in.Birthday.IsZero():
		return fmt.Errorf("%w: birthday is required", common.ErrorValidation)
	}
	if a, err := mail.ParseAddress(in.Email); err != nil || a.Address != in.Email {
		return fmt.Errorf("%w: invalid email", common.ErrorValidation)
	}
	return nil
}
