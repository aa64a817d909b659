package service

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"
)

type emailService struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func NewEmailService(host string, port int, username, password, from string) EmailService {
	return &emailService{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

func (s *emailService) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(s.host, s.port, s.username, s.password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *emailService) SendBorrowApproved(ctx context.Context, email, title string, dueDate time.Time) error {
	body := fmt.Sprintf("Hello,\n\nYour borrow request for '%s' was approved.\nPlease return it by %s.\n\nThe Library Team",
		title, dueDate.Format("2006-01-02"))
	return s.send(email, fmt.Sprintf("Borrow Approved - %s", title), body)
}

func (s *emailService) SendBorrowRejected(ctx context.Context, email, title, reason string) error {
	body := fmt.Sprintf("Hello,\n\nYour borrow request for '%s' was rejected.", title)
	if reason != "" {
		body += fmt.Sprintf("\n\nReason: %s", reason)
	}
	body += "\n\nThe Library Team"
	return s.send(email, fmt.Sprintf("Borrow Rejected - %s", title), body)
}

func (s *emailService) SendFineAssessed(ctx context.Context, email, title string, amountCents int32, checkoutURL string) error {
	body := fmt.Sprintf("Hello,\n\nA fine of %s was assessed for the late return of '%s'.",
		formatCents(amountCents), title)
	if checkoutURL != "" {
		body += fmt.Sprintf("\n\nYou can settle it here: %s", checkoutURL)
	}
	body += "\n\nThe Library Team"
	return s.send(email, fmt.Sprintf("Fine Assessed - %s", title), body)
}

func (s *emailService) SendFineSettled(ctx context.Context, email, title string, amountCents int32) error {
	body := fmt.Sprintf("Hello,\n\nYour fine of %s for '%s' has been settled. Thank you.\n\nThe Library Team",
		formatCents(amountCents), title)
	return s.send(email, fmt.Sprintf("Fine Settled - %s", title), body)
}

func (s *emailService) SendOverdueReminder(ctx context.Context, email, title string, dueDate time.Time, accruedCents int32) error {
	body := fmt.Sprintf("Hello,\n\n'%s' was due back on %s.", title, dueDate.Format("2006-01-02"))
	if accruedCents > 0 {
		body += fmt.Sprintf(" A fine of %s has accrued so far.", formatCents(accruedCents))
	}
	body += "\n\nPlease return it as soon as possible.\n\nThe Library Team"
	return s.send(email, fmt.Sprintf("Overdue Reminder - %s", title), body)
}

func (s *emailService) SendSettlementEscalation(ctx context.Context, adminEmail, subject, message string) error {
	return s.send(adminEmail, subject, message)
}

func formatCents(cents int32) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
