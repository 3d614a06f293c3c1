package notify

import (
	"bytes"
	"fmt"
	"html/template"
)

// Templates interpolate client-supplied text (subject, body, drafted
// replies), so they go through html/template for escaping.

var criticalAlertTmpl = template.Must(template.New("critical").Parse(`
<h2>Critical client email</h2>
<p><b>From:</b> {{.From}}<br>
<b>Subject:</b> {{.Subject}}<br>
<b>Urgency score:</b> {{.UrgencyScore}}</p>
<blockquote>{{.Body}}</blockquote>
<p>Ticket <b>{{.TicketID}}</b> created, assigned to {{.AssignedTo}}. Respond within {{.DeadlineHours}}h.</p>
`))

var churnAlertTmpl = template.Must(template.New("churn").Parse(`
<h2>Churn risk alert</h2>
<p><b>Client:</b> {{.ClientEmail}}<br>
<b>Churn risk:</b> {{.ChurnRisk}}/100<br>
<b>Satisfaction trend:</b> {{.SatisfactionTrend}}</p>
<p>Latest message:</p>
<blockquote>{{.Body}}</blockquote>
<p>Retention ticket <b>{{.TicketID}}</b> created.</p>
`))

var ackTmpl = template.Must(template.New("ack").Parse(`
<p>Hi {{if .Name}}{{.Name}}{{else}}there{{end}},</p>
<p>Thanks for your message. A member of our team will get back to you within {{.ETAHours}} hours.</p>
<p>Your reference: <b>{{.TicketID}}</b></p>
<p>— Client Support</p>
`))

var autoReplyTmpl = template.Must(template.New("reply").Parse(`
<p>Hi {{if .Name}}{{.Name}}{{else}}there{{end}},</p>
{{range .Paragraphs}}<p>{{.}}</p>
{{end}}<p>— Client Support</p>
`))

type CriticalAlertData struct {
	From          string
	Subject       string
	Body          string
	UrgencyScore  int
	TicketID      string
	AssignedTo    string
	DeadlineHours int
}

func CriticalAlert(to []string, d CriticalAlertData) (Email, error) {
	html, err := render(criticalAlertTmpl, d)
	if err != nil {
		return Email{}, err
	}
	return Email{
		To:      to,
		Subject: fmt.Sprintf("[CRITICAL] %s", d.Subject),
		HTML:    html,
	}, nil
}

type ChurnAlertData struct {
	ClientEmail       string
	Body              string
	ChurnRisk         int
	SatisfactionTrend string
	TicketID          string
}

func ChurnAlert(to string, d ChurnAlertData) (Email, error) {
	html, err := render(churnAlertTmpl, d)
	if err != nil {
		return Email{}, err
	}
	return Email{
		To:      []string{to},
		Subject: fmt.Sprintf("[RETENTION] churn risk %d for %s", d.ChurnRisk, d.ClientEmail),
		HTML:    html,
	}, nil
}

type AckData struct {
	Name     string
	TicketID string
	ETAHours int
}

func Acknowledgement(to string, subject string, d AckData) (Email, error) {
	html, err := render(ackTmpl, d)
	if err != nil {
		return Email{}, err
	}
	return Email{
		To:      []string{to},
		Subject: "Re: " + subject,
		HTML:    html,
	}, nil
}

type AutoReplyData struct {
	Name       string
	Paragraphs []string
}

func AutoReply(to string, subject string, d AutoReplyData) (Email, error) {
	html, err := render(autoReplyTmpl, d)
	if err != nil {
		return Email{}, err
	}
	return Email{
		To:      []string{to},
		Subject: "Re: " + subject,
		HTML:    html,
	}, nil
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
