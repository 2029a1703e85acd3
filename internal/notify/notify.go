// Package notify sends result emails to students after grading.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/mail"
	"net/smtp"

	"github.com/scorredoira/email"

	"github.com/pavelanni/proctor/internal/i18n"
	"github.com/pavelanni/proctor/internal/model"
)

// SMTPConfig holds mail delivery settings. An empty Host disables sending.
type SMTPConfig struct {
	Host     string // SMTP server host, for auth
	Addr     string // host:port dial address
	Username string
	Password string
	From     string
	FromName string
}

// Mailer composes and delivers result summary emails. Delivery failures are
// logged and never propagated; email is best-effort.
type Mailer struct {
	cfg  SMTPConfig
	lang string
}

// NewMailer creates a mailer that localizes messages to lang.
func NewMailer(cfg SMTPConfig, lang string) *Mailer {
	return &Mailer{cfg: cfg, lang: lang}
}

// Enabled reports whether mail delivery is configured.
func (m *Mailer) Enabled() bool {
	return m.cfg.Host != ""
}

var bodyTmpl = template.Must(template.New("result").Parse(`<html><body>
<p>{{.Greeting}}</p>
<p>{{.Intro}}</p>
<p><b>{{.Score}}</b><br>{{.Grade}}</p>
<p>{{.Performance}}</p>
{{if .Graded}}<p>{{.Graded}}</p>{{end}}
{{if .Flagged}}<p><b>{{.Flagged}}</b></p>{{end}}
<p><small>{{.Footer}}</small></p>
</body></html>`))

type bodyData struct {
	Greeting    string
	Intro       string
	Score       string
	Grade       string
	Performance string
	Graded      string
	Flagged     string
	Footer      string
}

// SendResult emails a graded result summary to the student.
func (m *Mailer) SendResult(to, name, examName string, b model.ScoreBreakdown) {
	if !m.Enabled() {
		slog.Debug("mailer disabled, skipping result email", "to", to)
		return
	}

	ctx := i18n.WithLocalizer(context.Background(), i18n.NewLocalizer(m.lang))

	data := bodyData{
		Greeting: i18n.Td(ctx, "ResultEmailGreeting", map[string]any{"Name": name}),
		Intro:    i18n.Td(ctx, "ResultEmailIntro", map[string]any{"Exam": examName}),
		Score: i18n.Td(ctx, "ResultEmailScore", map[string]any{
			"Score":   b.TotalScore,
			"Max":     b.MaxPossible,
			"Percent": fmt.Sprintf("%.1f", b.Percentage),
		}),
		Grade:       i18n.Td(ctx, "ResultEmailGrade", map[string]any{"Grade": LetterGrade(b.Percentage)}),
		Performance: i18n.T(ctx, performanceKey(b.Percentage)),
		Footer:      i18n.T(ctx, "ResultEmailFooter"),
	}
	if n := len(b.SubjectiveResults); n > 0 {
		data.Graded = i18n.Tp(ctx, "WrittenAnswersGraded", n)
	}
	if b.Flagged {
		data.Flagged = i18n.T(ctx, "ResultEmailFlagged")
	}

	var body bytes.Buffer
	if err := bodyTmpl.Execute(&body, data); err != nil {
		slog.Error("render result email", "to", to, "error", err)
		return
	}

	subject := i18n.Td(ctx, "ResultEmailSubject", map[string]any{"Exam": examName})
	msg := email.NewHTMLMessage(subject, body.String())
	msg.From = mail.Address{Name: m.cfg.FromName, Address: m.cfg.From}
	msg.To = []string{to}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	if err := email.Send(m.cfg.Addr, auth, msg); err != nil {
		slog.Error("send result email", "to", to, "error", err)
		return
	}
	slog.Info("result email sent", "to", to, "exam", examName)
}

// LetterGrade maps a percentage to a letter grade.
func LetterGrade(p float64) string {
	switch {
	case p >= 90:
		return "A+"
	case p >= 80:
		return "A"
	case p >= 70:
		return "B"
	case p >= 60:
		return "C"
	case p >= 50:
		return "D"
	default:
		return "F"
	}
}

func performanceKey(p float64) string {
	switch {
	case p >= 90:
		return "PerfOutstanding"
	case p >= 80:
		return "PerfExcellent"
	case p >= 70:
		return "PerfGood"
	case p >= 60:
		return "PerfSatisfactory"
	case p >= 50:
		return "PerfPass"
	default:
		return "PerfFail"
	}
}
