package mailer

import (
	"bytes"
	"fmt"
	"net/smtp"
	"time"

	"github.com/GimhanaMahela/BusWatch/config"

	"github.com/jordan-wright/email"
)

// Mailer delivers the rendered receipt to the passenger by email. Delivery is
// best-effort; the caller logs failures and never surfaces them.
type Mailer struct {
	cfg config.SMTPConfig
}

func NewMailer(cfg config.SMTPConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

const receiptBody = `
<div style="font-family: Helvetica, Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 20px auto; padding: 20px; border: 1px solid #ddd; border-radius: 8px; background-color: #f9f9f9;">
  <div style="text-align: center; padding-bottom: 20px;">
    <h1 style="color: #0056b3; margin: 0; font-size: 28px;">BusWatch</h1>
    <p style="color: #555; font-size: 14px; margin-top: 5px;">Your Eye on Public Transport</p>
  </div>
  <h2 style="font-size: 20px; color: #333;">Hi there!</h2>
  <p style="font-size: 16px;">Thank you for taking the time to report an issue with public transport. Your vigilance helps us make a real difference!</p>
  <p style="font-size: 16px;">We've successfully received your report. For your records, please find your official <strong>report receipt attached</strong> to this email.</p>
  <div style="text-align: center; padding: 20px 0;">
    <div style="background-color: #e0f2f7; padding: 15px; border-radius: 5px; display: inline-block;">
      <p style="font-size: 18px; font-weight: bold; color: #0056b3; margin: 0;">Your Report ID:</p>
      <p style="font-size: 24px; font-weight: bold; color: #0056b3; margin: 5px 0 0;">%s</p>
    </div>
  </div>
  <p style="font-size: 15px; color: #555;">This unique ID helps us track and investigate your report efficiently. If you need to refer to this report, please use the Report ID provided above.</p>
  <div style="text-align: center; border-top: 1px solid #eee; padding-top: 20px;">
    <p style="font-size: 14px; color: #777;">Sincerely,<br/>The <strong>BusWatch Team</strong></p>
    <p style="font-size: 12px; color: #999;">&copy; %d BusWatch. All rights reserved.</p>
  </div>
</div>`

// SendReceipt sends the receipt PDF to the passenger.
func (m *Mailer) SendReceipt(to, receiptID string, pdf []byte) error {
	e := email.NewEmail()
	e.From = fmt.Sprintf("BusWatch <%s>", m.cfg.From)
	e.To = []string{to}
	e.Subject = fmt.Sprintf("Your BusWatch Report Receipt - ID: %s", receiptID)
	e.HTML = []byte(fmt.Sprintf(receiptBody, receiptID, time.Now().Year()))

	filename := fmt.Sprintf("BusWatch_Report_Receipt_%s.pdf", receiptID)
	if _, err := e.Attach(bytes.NewReader(pdf), filename, "application/pdf"); err != nil {
		return fmt.Errorf("failed to attach receipt: %w", err)
	}

	addr := m.cfg.Host + ":" + m.cfg.Port
	var a smtp.Auth
	if m.cfg.Username != "" || m.cfg.Password != "" {
		a = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	if err := e.Send(addr, a); err != nil {
		return fmt.Errorf("failed to send receipt email: %w", err)
	}
	return nil
}
