package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

var layout = template.Must(template.New("layout").Parse(`<div style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: auto;">
  <div style="background: #111; color: white; padding: 1.5rem; text-align: center;">
    <h1 style="margin: 0;">ÆTHER</h1>
    <p style="margin: 0;">Breathe the Vibe, Redefined for You</p>
  </div>
  <div style="padding: 1.5rem;">{{template "body" .}}</div>
  <div style="text-align: center; padding: 1rem; font-size: 0.9rem; color: #555;">© {{.Year}} ÆTHER. All rights reserved.</div>
</div>`))

func render(body string, data map[string]interface{}) (string, error) {
	t, err := template.Must(layout.Clone()).New("body").Parse(body)
	if err != nil {
		return "", err
	}
	data["Year"] = time.Now().Year()
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", fmt.Errorf("render mail: %w", err)
	}
	return buf.String(), nil
}

// ContactAdmin is the copy of a contact form submission sent to the shop inbox.
func ContactAdmin(inbox, name, email, message string) Message {
	return Message{
		FromName: "ÆTHER Contact Form",
		To:       inbox,
		ReplyTo:  email,
		Subject:  "New Contact Form Submission from " + name,
		Text:     fmt.Sprintf("Name: %s\nEmail: %s\nMessage: %s\n", name, email, message),
	}
}

// ContactConfirmation acknowledges a contact form submission to its sender.
func ContactConfirmation(name, email, message string) (Message, error) {
	html, err := render(`<h2>Hi {{.Name}},</h2>
<p>Thank you for reaching out to <strong>ÆTHER</strong>. We’ve received your message and will get back to you as soon as possible.</p>
<p><em>Your message:</em></p>
<blockquote style="border-left: 4px solid #48d1cc; padding-left: 10px;">{{.Message}}</blockquote>`,
		map[string]interface{}{"Name": name, "Message": message})
	if err != nil {
		return Message{}, err
	}
	return Message{To: email, Subject: "We’ve received your message!", HTML: html}, nil
}

// PasswordReset carries the one-time reset link.
func PasswordReset(name, email, link string, ttl time.Duration) (Message, error) {
	html, err := render(`<h2>Hi {{.Name}},</h2>
<p>We received a request to reset your password. The link below is valid for {{.Minutes}} minutes.</p>
<p><a href="{{.Link}}">Reset your password</a></p>
<p>If you did not request this, you can ignore this email.</p>`,
		map[string]interface{}{"Name": name, "Link": link, "Minutes": int(ttl.Minutes())})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      email,
		Subject: "Reset your ÆTHER password",
		Text:    "Reset your password: " + link,
		HTML:    html,
	}, nil
}

// OrderLine is one row of an order confirmation.
type OrderLine struct {
	Name     string
	Size     string
	Quantity int
	Price    float64
}

// OrderConfirmation summarises a placed or paid order.
func OrderConfirmation(name, email, orderID, provider, currency string, total float64, lines []OrderLine) (Message, error) {
	html, err := render(`<h2>Hi {{.Name}},</h2>
<p>Thank you for your order <strong>{{.OrderID}}</strong>{{if eq .Provider "cod"}}. Please keep the amount ready on delivery{{end}}.</p>
<table style="width: 100%; border-collapse: collapse;">
{{range .Lines}}<tr><td>{{.Name}}{{if .Size}} ({{.Size}}){{end}}</td><td>× {{.Quantity}}</td><td style="text-align: right;">{{printf "%.2f" .Price}}</td></tr>
{{end}}</table>
<p style="text-align: right;"><strong>Total: {{.Currency}} {{printf "%.2f" .Total}}</strong></p>`,
		map[string]interface{}{
			"Name": name, "OrderID": orderID, "Provider": provider,
			"Currency": currency, "Total": total, "Lines": lines,
		})
	if err != nil {
		return Message{}, err
	}
	return Message{To: email, Subject: "Your ÆTHER order " + orderID, HTML: html}, nil
}
