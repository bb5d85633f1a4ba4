package models

import (
	"strconv"
	"strings"
	"time"
)

// RegistrationFields holds the freeform registrant details collected by the form.
type RegistrationFields struct {
	FirstName  string `json:"firstName" validate:"required"`
	LastName   string `json:"lastName" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Country    string `json:"country"`
	Province   string `json:"province"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Year       string `json:"year" validate:"required"`
	Make       string `json:"make" validate:"required"`
	Model      string `json:"model" validate:"required"`
	ClubName   string `json:"clubName"`
}

// FullName joins first and last name with a single space.
func (f RegistrationFields) FullName() string {
	return strings.TrimSpace(f.FirstName + " " + f.LastName)
}

// Vehicle returns "year make model".
func (f RegistrationFields) Vehicle() string {
	return strings.TrimSpace(f.Year + " " + f.Make + " " + f.Model)
}

// Registration is one confirmed, paid signup.
type Registration struct {
	Fields          RegistrationFields `json:"fields"`
	PokerRun        bool               `json:"pokerRun"`
	AmountTotal     int64              `json:"amountTotal"` // cents
	PaymentIntentID string             `json:"paymentIntentId"`
	SessionID       string             `json:"sessionId"`
	EventID         string             `json:"eventId"`
	SubmittedAt     time.Time          `json:"submittedAt"`
}

// AmountPaid returns the charged total in dollars.
func (r Registration) AmountPaid() float64 {
	return float64(r.AmountTotal) / 100
}

// Metadata keys shared by checkout-session creation and the webhook.
const (
	MetaFirstName  = "firstName"
	MetaLastName   = "lastName"
	MetaEmail      = "email"
	MetaCountry    = "country"
	MetaProvince   = "province"
	MetaCity       = "city"
	MetaPostalCode = "postalCode"
	MetaYear       = "year"
	MetaMake       = "make"
	MetaModel      = "model"
	MetaClubName   = "clubName"
	MetaPokerRun   = "pokerRun"
)

// ToMetadata flattens the fields into payment-provider metadata.
func (f RegistrationFields) ToMetadata(pokerRun bool) map[string]string {
	return map[string]string{
		MetaFirstName:  f.FirstName,
		MetaLastName:   f.LastName,
		MetaEmail:      f.Email,
		MetaCountry:    f.Country,
		MetaProvince:   f.Province,
		MetaCity:       f.City,
		MetaPostalCode: f.PostalCode,
		MetaYear:       f.Year,
		MetaMake:       f.Make,
		MetaModel:      f.Model,
		MetaClubName:   f.ClubName,
		MetaPokerRun:   strconv.FormatBool(pokerRun),
	}
}

// FieldsFromMetadata rebuilds registration fields and the add-on flag from
// checkout metadata. Missing keys become empty strings.
func FieldsFromMetadata(meta map[string]string) (RegistrationFields, bool) {
	fields := RegistrationFields{
		FirstName:  meta[MetaFirstName],
		LastName:   meta[MetaLastName],
		Email:      meta[MetaEmail],
		Country:    meta[MetaCountry],
		Province:   meta[MetaProvince],
		City:       meta[MetaCity],
		PostalCode: meta[MetaPostalCode],
		Year:       meta[MetaYear],
		Make:       meta[MetaMake],
		Model:      meta[MetaModel],
		ClubName:   meta[MetaClubName],
	}
	return fields, ParseFlag(meta[MetaPokerRun])
}

// ParseFlag reads checkbox-style metadata values ("true", "on", "yes", "1").
func ParseFlag(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "on", "yes", "1":
		return true
	}
	return false
}
