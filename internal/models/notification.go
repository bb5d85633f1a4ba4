package models

import "time"

// AdminNotification is the summary mailed to the organisers for each paid registration.
type AdminNotification struct {
	Registration   Registration
	EntryNumber    int
	PokerRunNumber int
	BaseFee        int64
	PokerRunFee    int64
	RegisteredAt   time.Time
}

// DashSheetData fills the dash-sheet template. Numbers of zero render as blanks
// (Poker Run) or "000" (entry).
type DashSheetData struct {
	EntryNumber    int
	PokerRunNumber int
	Year           string
	Make           string
	Model          string
	OwnerName      string
	City           string
	Province       string
}

// DashSheetFrom builds template data from normalized fields.
func DashSheetFrom(f RegistrationFields, entryNumber, pokerRunNumber int) DashSheetData {
	return DashSheetData{
		EntryNumber:    entryNumber,
		PokerRunNumber: pokerRunNumber,
		Year:           f.Year,
		Make:           f.Make,
		Model:          f.Model,
		OwnerName:      f.FullName(),
		City:           f.City,
		Province:       f.Province,
	}
}

// DashSheetDelivery is one rendered dash sheet ready to be emailed.
type DashSheetDelivery struct {
	To             string
	Name           string
	EntryNumber    int
	PokerRunNumber int
	PDF            []byte
}
