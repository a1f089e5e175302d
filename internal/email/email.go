package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/Domenick1991/flightreservation/config"
	"github.com/Domenick1991/flightreservation/internal/kafka"
	"go.uber.org/zap"
)

// Message is a plain-text notification for one passenger.
type Message struct {
	To      string
	Subject string
	Body    string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Sender struct {
	cfg  config.EmailConfig
	log  *zap.Logger
	send sendFunc
}

func NewSender(cfg config.EmailConfig, log *zap.Logger) *Sender {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sender{cfg: cfg, log: log, send: smtp.SendMail}
}

// Compose builds the notification for a reservation event.
func Compose(event kafka.ReservationEvent) (Message, error) {
	route := fmt.Sprintf("flight %d", event.FlightID)
	if event.FlightCode != "" {
		route = fmt.Sprintf("flight %s %s - %s", event.FlightCode, event.DepartureCity, event.ArrivalCity)
	}

	msg := Message{To: event.Email}
	switch event.Type {
	case kafka.EventReservationCreated:
		msg.Subject = fmt.Sprintf("Reservation %s confirmed", event.Code)
		msg.Body = fmt.Sprintf("Dear %s,\n\nyour reservation %s for %s is confirmed.\nSeats: %d\nTotal price: %s\n",
			event.PassengerName, event.Code, route, event.Seats, event.TotalPrice.StringFixed(2))
	case kafka.EventReservationUpdated:
		msg.Subject = fmt.Sprintf("Reservation %s updated", event.Code)
		msg.Body = fmt.Sprintf("Dear %s,\n\nyour reservation %s for %s was updated.\nSeats: %d\nTotal price: %s\n",
			event.PassengerName, event.Code, route, event.Seats, event.TotalPrice.StringFixed(2))
	case kafka.EventReservationCancelled:
		msg.Subject = fmt.Sprintf("Reservation %s cancelled", event.Code)
		msg.Body = fmt.Sprintf("Dear %s,\n\nyour reservation %s for %s was cancelled.\n",
			event.PassengerName, event.Code, route)
	default:
		return Message{}, fmt.Errorf("unknown event type %q", event.Type)
	}
	return msg, nil
}

func (s *Sender) Send(ctx context.Context, event kafka.ReservationEvent) error {
	msg, err := Compose(event)
	if err != nil {
		s.log.Warn("skipping notification", zap.Error(err), zap.String("code", event.Code))
		return nil
	}

	if s.cfg.SMTPHost == "" {
		s.log.Info("notification",
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.String("type", event.Type),
		)
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.SMTPHost)
	}
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)
	if err := s.send(addr, auth, s.cfg.From, []string{msg.To}, s.render(msg)); err != nil {
		return fmt.Errorf("send notification to %s: %w", msg.To, err)
	}
	s.log.Info("notification sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

func (s *Sender) render(msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}
