package email

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"ms-registration/internal/models"
	"ms-registration/internal/utils"
)

const (
	AdminSubject     = "New Seaside Cruizers Car Show Registration"
	DashSheetSubject = "Your Seaside Cruizers Car Show Dash Sheet"
)

const (
	eventTitle    = "Seaside Cruizers Father's Day Show and Shine"
	eventDates    = "June 19-21, 2026"
	eventLocation = "Parksville - Qualicum Beach"
)

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func money(dollars float64) string {
	return fmt.Sprintf("$%.2f", dollars)
}

func joinAddress(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}

// AdminBody renders the plain-text organiser summary.
func AdminBody(n models.AdminNotification, loc *time.Location) string {
	f := n.Registration.Fields
	club := f.ClubName
	if club == "" {
		club = "None"
	}
	var pokerRunFee int64
	if n.Registration.PokerRun {
		pokerRunFee = n.PokerRunFee
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Personal Information:\n")
	fmt.Fprintf(&b, "  • Name: %s\n", f.FullName())
	fmt.Fprintf(&b, "  • Email: %s\n", f.Email)
	fmt.Fprintf(&b, "  • Address: %s\n\n", joinAddress(f.Country, f.Province, f.City, f.PostalCode))

	fmt.Fprintf(&b, "Car Information:\n")
	fmt.Fprintf(&b, "  • Make: %s\n", f.Make)
	fmt.Fprintf(&b, "  • Model: %s\n", f.Model)
	fmt.Fprintf(&b, "  • Year: %s\n", f.Year)
	fmt.Fprintf(&b, "  • Car Club Affiliation: %s\n\n", club)

	fmt.Fprintf(&b, "Poker Run:\n")
	fmt.Fprintf(&b, "  • Participating: %s\n", yesNo(n.Registration.PokerRun))
	if n.Registration.PokerRun && n.PokerRunNumber > 0 {
		fmt.Fprintf(&b, "  • Poker Run Number: %03d\n", n.PokerRunNumber)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Payment Details:\n")
	fmt.Fprintf(&b, "  • Base Registration: %s\n", money(float64(n.BaseFee)))
	fmt.Fprintf(&b, "  • Poker Run: %s\n", money(float64(pokerRunFee)))
	fmt.Fprintf(&b, "  • Total Charged: %s\n", money(n.Registration.AmountPaid()))
	fmt.Fprintf(&b, "  • Payment Transaction ID: %s\n\n", n.Registration.PaymentIntentID)

	fmt.Fprintf(&b, "Entry Number: %03d\n\n", n.EntryNumber)
	fmt.Fprintf(&b, "Date/Time of Registration: %s\n", utils.FormatIn(n.RegisteredAt, loc, utils.LongTimestampLayout))
	return b.String()
}

// DashSheetText renders the plain-text participant email.
func DashSheetText(name string, entryNumber int) string {
	return fmt.Sprintf(`Hi %s,

Thank you for registering for the %s!

Your entry number is: %03d

Please find attached your personalized dash sheet. Print this out and display it on your vehicle's dashboard during the event.

Event Details:
  Date: %s
  Location: %s

We look forward to seeing you and your vehicle at the show!

Best regards,
Seaside Cruizers Team`, name, eventTitle, entryNumber, eventDates, eventLocation)
}

var dashSheetHTML = template.Must(template.New("dashsheet").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #2c3e50;">Thank You for Registering!</h2>
  <p>Hi {{.Name}},</p>
  <p>Thank you for registering for the <strong>{{.Event}}</strong>!</p>
  <div style="background-color: #f8f9fa; padding: 20px; border-radius: 8px; margin: 20px 0;">
    <h3 style="margin-top: 0; color: #2c3e50;">Your Entry Number</h3>
    <p style="font-size: 36px; font-weight: bold; color: #e74c3c; margin: 10px 0;">{{.Entry}}</p>
  </div>
  <p>Please find attached your personalized <strong>dash sheet</strong>. Print this out and display it on your vehicle's dashboard during the event.</p>
  <div style="background-color: #e8f4f8; padding: 15px; border-left: 4px solid #3498db; margin: 20px 0;">
    <h3 style="margin-top: 0; color: #2c3e50;">Event Details</h3>
    <p style="margin: 5px 0;"><strong>Date:</strong> {{.Dates}}</p>
    <p style="margin: 5px 0;"><strong>Location:</strong> {{.Location}}</p>
  </div>
  <p>We look forward to seeing you and your vehicle at the show!</p>
  <p style="margin-top: 30px;">Best regards,<br><strong>Seaside Cruizers Team</strong></p>
</div>`))

// DashSheetHTML renders the HTML participant email.
func DashSheetHTML(name string, entryNumber int) (string, error) {
	var buf bytes.Buffer
	err := dashSheetHTML.Execute(&buf, struct {
		Name, Event, Entry, Dates, Location string
	}{name, eventTitle, fmt.Sprintf("%03d", entryNumber), eventDates, eventLocation})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// AttachmentName is the dash-sheet PDF filename.
func AttachmentName(entryNumber int) string {
	return fmt.Sprintf("Dashsheet-%03d.pdf", entryNumber)
}
