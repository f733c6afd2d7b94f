package notify

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

// MailChannel sends plain status mails over SMTP. The department head always
// gets a copy; the requester only when they left an address.
type MailChannel struct {
	dialer *gomail.Dialer
	from   string
}

func NewMailChannel(host string, port int, username, password, from string) *MailChannel {
	return &MailChannel{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

func (m *MailChannel) Send(_ context.Context, ev Event) error {
	recipients := make([]string, 0, 2)
	if ev.DeptHeadEmail != "" {
		recipients = append(recipients, ev.DeptHeadEmail)
	}
	if ev.RequesterEmail != "" {
		recipients = append(recipients, ev.RequesterEmail)
	}
	if len(recipients) == 0 {
		return nil
	}

	subject := fmt.Sprintf("[PPE Request] %s for %s", ev.NewStatus, ev.RequesterName)
	body := fmt.Sprintf(
		"Requester: %s\nDepartment: %s\nItem: %s x%d %s\nStatus: %s\n",
		ev.RequesterName, ev.DeptName, ev.ItemName, ev.Quantity, ev.Unit, ev.NewStatus,
	)
	if ev.Note != "" {
		body += "Note: " + ev.Note + "\n"
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", recipients...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	return m.dialer.DialAndSend(msg)
}
