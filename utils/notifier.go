package utils

import (
	"bytes"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"

	"mailscout/config"
)

// Notifier emails a summary when a bulk discovery job finishes. It is a
// plain authenticated submission to our own relay and has nothing to do with
// the verification probes, which never transmit a message.
type Notifier struct {
	cfg config.SMTPConfig
}

func NewNotifier(cfg config.SMTPConfig) *Notifier {
	return &Notifier{cfg: cfg}
}

// Enabled reports whether an outbound relay is configured.
func (n *Notifier) Enabled() bool {
	return n.cfg.Host != ""
}

var jobDoneTemplate = template.Must(template.New("job_done").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333; max-width: 600px; margin: 0 auto;">
    <h2>Discovery job finished</h2>
    <p>Your job <strong>{{.Name}}</strong> has completed.</p>
    <ul>
        <li>People processed: {{.Processed}}</li>
        <li>Addresses found: {{.Found}}</li>
    </ul>
    <p>Log in to review and export the discovered contacts.</p>
</body>
</html>`))

// NotifyJobComplete sends the completion summary to the address attached to
// the job. No-op when no relay is configured.
func (n *Notifier) NotifyJobComplete(to, jobName string, processed, found int) error {
	if !n.Enabled() || to == "" {
		return nil
	}

	var body bytes.Buffer
	data := struct {
		Name      string
		Processed int
		Found     int
	}{jobName, processed, found}
	if err := jobDoneTemplate.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to render notification: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.FromEmail)
	m.SetHeader("To", to)
	m.SetHeader("Subject", fmt.Sprintf("Discovery job %q completed", jobName))
	m.SetBody("text/html", body.String())

	d := gomail.NewDialer(n.cfg.Host, n.cfg.Port, n.cfg.Username, n.cfg.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	return nil
}
