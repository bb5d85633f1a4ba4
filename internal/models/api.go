package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// CheckoutRequest is the body posted by the registration form.
type CheckoutRequest struct {
	RegistrationFields
	PokerRun bool   `json:"pokerRun"`
	Origin   string `json:"origin" validate:"required,url"`
}

type CheckoutResponse struct {
	URL string `json:"url"`
}

// Availability is the Poker Run capacity snapshot returned to the form.
type Availability struct {
	Available    bool   `json:"available"`
	CurrentCount int    `json:"currentCount"`
	MaxLimit     int    `json:"maxLimit"`
	Remaining    int    `json:"remaining"`
	Message      string `json:"message"`
	Error        string `json:"error,omitempty"`
}

// RegenerateRequest asks for a dash sheet to be rebuilt and re-sent.
type RegenerateRequest struct {
	FirstName      string  `json:"firstName"`
	LastName       string  `json:"lastName"`
	Email          string  `json:"email"`
	Year           string  `json:"year"`
	Make           string  `json:"make"`
	Model          string  `json:"model"`
	City           string  `json:"city"`
	Province       string  `json:"province"`
	EntryNumber    FlexInt `json:"entryNumber"`
	PokerRunNumber FlexInt `json:"pokerRunNumber,omitempty"`
	AdminKey       string  `json:"adminKey,omitempty"`
}

// MissingFields lists required regeneration fields that are empty.
func (r RegenerateRequest) MissingFields() []string {
	var missing []string
	check := func(name, value string) {
		if value == "" {
			missing = append(missing, name)
		}
	}
	check("firstName", r.FirstName)
	check("lastName", r.LastName)
	check("email", r.Email)
	check("year", r.Year)
	check("make", r.Make)
	check("model", r.Model)
	check("city", r.City)
	check("province", r.Province)
	if !r.EntryNumber.Set {
		missing = append(missing, "entryNumber")
	}
	return missing
}

type RegenerateSummary struct {
	Recipient   string `json:"recipient"`
	Email       string `json:"email"`
	EntryNumber string `json:"entryNumber"`
	Vehicle     string `json:"vehicle"`
	Location    string `json:"location"`
	PDFSize     int    `json:"pdfSize"`
}

// RegistrationEvent is published once a registration has been persisted.
type RegistrationEvent struct {
	EventID         string `json:"eventId"`
	PaymentIntentID string `json:"paymentIntentId"`
	EntryNumber     int    `json:"entryNumber"`
	PokerRunNumber  int    `json:"pokerRunNumber,omitempty"`
	FullName        string `json:"fullName"`
	Email           string `json:"email"`
	Vehicle         string `json:"vehicle"`
	AmountPaid      string `json:"amountPaid"`
	RegisteredAt    string `json:"registeredAt"`
}

// FlexInt accepts either a JSON number or a numeric string. Set reports
// whether a non-empty value was present; Valid whether it parsed.
type FlexInt struct {
	Value int
	Set   bool
	Valid bool
}

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	*f = FlexInt{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
	}
	if raw == "" || raw == "0" {
		// zero counts as absent
		return nil
	}
	f.Set = true
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	f.Value = n
	f.Valid = true
	return nil
}

func (f FlexInt) MarshalJSON() ([]byte, error) {
	if !f.Set {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(f.Value)), nil
}

// Positive reports a parsed value of at least 1.
func (f FlexInt) Positive() bool {
	return f.Valid && f.Value >= 1
}
