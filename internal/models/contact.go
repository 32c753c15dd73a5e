package models

import (
	"regexp"
	"strings"

	"github.com/khata-app/khata-backend/internal/api/validate"
)

type UserType string

const (
	UserTypeCustomer UserType = "customer"
	UserTypeSupplier UserType = "supplier"
)

var phoneRe = regexp.MustCompile(`^[0-9]{10}$`)

// Contact is a customer or supplier counterparty. The phone number is the
// natural key used for lookups; the store does not enforce its uniqueness.
type Contact struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	PhoneNumber  string        `json:"phone_number"`
	Email        string        `json:"email"`
	Address      string        `json:"address"`
	UserType     UserType      `json:"user_type"`
	CreatedAt    int64         `json:"created_at"` // epoch millis
	UpdatedAt    int64         `json:"updated_at"`
	Transactions []Transaction `json:"transactions"`
}

func (c *Contact) Validate() error {
	var errs validate.Errs
	if e := validate.Required("name", c.Name); e != nil {
		errs = append(errs, *e)
	}
	if e := validate.Required("phone_number", c.PhoneNumber); e != nil {
		errs = append(errs, *e)
	} else if !phoneRe.MatchString(strings.TrimSpace(c.PhoneNumber)) {
		errs = append(errs, validate.ErrField{Field: "phone_number", Msg: "must be exactly 10 digits"})
	}
	if c.UserType == "" {
		c.UserType = UserTypeCustomer
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
