package registration

import (
	"fmt"

	"ms-registration/internal/models"
)

// Sheet columns for the Poker Run layout. One deployment uses one layout.
const (
	ColTimestamp      = "A"
	ColName           = "B"
	ColEmail          = "C"
	ColCountry        = "D"
	ColProvince       = "E"
	ColCity           = "F"
	ColPostalCode     = "G"
	ColVehicle        = "H"
	ColCarClub        = "I"
	ColPokerRun       = "J"
	ColBaseFee        = "K"
	ColPokerRunFee    = "L"
	ColTotalPaid      = "M"
	ColPaymentID      = "N"
	ColEntryNumber    = "O"
	ColPokerRunNumber = "P"

	LastColumn = ColPokerRunNumber

	// EntryCountColumn is read to count persisted registrations.
	EntryCountColumn = ColTimestamp
	// PokerRunMarker is written to ColPokerRun for add-on participants.
	PokerRunMarker = "Yes"
)

// Header is the first row of the sheet.
var Header = []string{
	"Timestamp", "Name", "Email", "Country", "Province", "City", "Postal Code",
	"Vehicle", "Car Club", "Poker Run", "Base Fee", "Poker Run Fee",
	"Total Paid", "Payment ID", "Entry Number", "Poker Run Number",
}

// RowInput is everything written into one registration row.
type RowInput struct {
	Timestamp      string
	Fields         models.RegistrationFields
	PokerRun       bool
	BaseFee        int64
	PokerRunFee    int64
	AmountPaid     float64
	PaymentID      string
	EntryNumber    int
	PokerRunNumber int
}

// BuildRow lays out in according to Header.
func BuildRow(in RowInput) []any {
	club := in.Fields.ClubName
	if club == "" {
		club = "None"
	}
	marker := "No"
	var addOnFee int64
	pokerRunNumber := ""
	if in.PokerRun {
		marker = PokerRunMarker
		addOnFee = in.PokerRunFee
		if in.PokerRunNumber > 0 {
			pokerRunNumber = FormatNumber(in.PokerRunNumber)
		}
	}

	return []any{
		in.Timestamp,
		in.Fields.FullName(),
		in.Fields.Email,
		in.Fields.Country,
		in.Fields.Province,
		in.Fields.City,
		in.Fields.PostalCode,
		in.Fields.Vehicle(),
		club,
		marker,
		in.BaseFee,
		addOnFee,
		fmt.Sprintf("%.2f", in.AmountPaid),
		in.PaymentID,
		FormatNumber(in.EntryNumber),
		pokerRunNumber,
	}
}

// FormatNumber zero-pads to three digits.
func FormatNumber(n int) string {
	return fmt.Sprintf("%03d", n)
}
