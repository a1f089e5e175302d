// Package pdf renders reservation confirmations.
package pdf

import (
	"bytes"
	"fmt"
	"image/png"
	"os"

	"github.com/Domenick1991/flightreservation/internal/domain"
	"github.com/signintech/gopdf"
	"github.com/skip2/go-qrcode"
)

const (
	fontFamily = "dejavu"
	dateLayout = "02 Jan 2006 15:04 MST"
)

type Renderer struct {
	font []byte
}

// NewRenderer loads the TTF font used for every document.
func NewRenderer(fontPath string) (*Renderer, error) {
	font, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}
	return &Renderer{font: font}, nil
}

func (r *Renderer) Render(res *domain.Reservation) ([]byte, error) {
	if res.Flight == nil {
		return nil, fmt.Errorf("reservation %s has no flight loaded", res.Code)
	}

	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.SetInfo(gopdf.PdfInfo{Title: "Reservation " + res.Code, Subject: "Flight reservation confirmation"})
	pdf.AddPage()

	if err := pdf.AddTTFFontData(fontFamily, r.font); err != nil {
		return nil, fmt.Errorf("failed to add font: %w", err)
	}

	if err := pdf.SetFont(fontFamily, "", 20); err != nil {
		return nil, fmt.Errorf("failed to set font: %w", err)
	}
	pdf.SetXY(40, 40)
	if err := pdf.Cell(nil, "Flight Reservation Confirmation"); err != nil {
		return nil, err
	}

	if err := pdf.SetFont(fontFamily, "", 12); err != nil {
		return nil, fmt.Errorf("failed to set font: %w", err)
	}
	pdf.SetXY(40, 90)
	for _, line := range lines(res) {
		pdf.SetX(40)
		if err := pdf.Cell(nil, line.label+": "+line.value); err != nil {
			return nil, err
		}
		pdf.Br(20)
	}

	if err := addQRCode(pdf, res.Code, pdf.GetY()+20); err != nil {
		return nil, err
	}

	pdf.SetXY(40, 780)
	if err := pdf.Cell(nil, "Please present this document at check-in."); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := pdf.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

type line struct {
	label string
	value string
}

func lines(res *domain.Reservation) []line {
	f := res.Flight
	return []line{
		{"Reservation code", res.Code},
		{"Passenger", res.PassengerName()},
		{"Email", res.PassengerEmail},
		{"Flight", f.Code},
		{"From", fmt.Sprintf("%s, %s", f.DepartureCity.Name, f.DepartureCity.Country)},
		{"To", fmt.Sprintf("%s, %s", f.ArrivalCity.Name, f.ArrivalCity.Country)},
		{"Departure", f.DepartureTime.Format(dateLayout)},
		{"Arrival", f.ArrivalTime.Format(dateLayout)},
		{"Seats", fmt.Sprintf("%d", res.SeatsReserved)},
		{"Total price", res.TotalPrice.StringFixed(2)},
		{"Booked on", res.ReservationDate.Format(dateLayout)},
	}
}

func addQRCode(pdf *gopdf.GoPdf, code string, y float64) error {
	data, err := qrcode.Encode(code, qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("failed to encode QR code: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to decode QR code: %w", err)
	}
	if err := pdf.ImageFrom(img, 40, y, &gopdf.Rect{W: 120, H: 120}); err != nil {
		return fmt.Errorf("failed to draw QR code: %w", err)
	}
	return nil
}
