package services

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strings"
	"time"

	"fotolio/pkg/utils"
)

type IMailService interface {
	SendMailToNotifyUser(to, subject, body string) error
	SendGalleryDeletedNotice(to, galleryTitle string) error
	// Configured reports whether a sender identity is set; callers treat
	// an unconfigured mailer as "skip notifications", not an error.
	Configured() bool
}

// SMTPConfig holds SMTP + branding config.
type SMTPConfig struct {
	Host     string // e.g. "smtp.gmail.com"
	Port     int    // 587 for STARTTLS
	Username string
	Password string
	From     string // envelope from, e.g. "no-reply@fotolio.dev"
	FromName string // display name

	AppName string // used in footer
}

type smtpMailService struct {
	cfg     SMTPConfig
	htmlTpl *template.Template
	textTpl *template.Template
}

func NewSMTPMailService(cfg SMTPConfig) (IMailService, error) {
	htmlTpl := template.Must(template.New("notifyHTML").Parse(baseHTMLTemplate))
	textTpl := template.Must(template.New("plainText").Parse(plainTextTemplate))

	return &smtpMailService{
		cfg:     cfg,
		htmlTpl: htmlTpl,
		textTpl: textTpl,
	}, nil
}

func (s *smtpMailService) Configured() bool {
	return s.cfg.From != "" && s.cfg.Host != ""
}

type emailData struct {
	Title   string
	Intro   string
	AppName string
	Year    int
}

func (s *smtpMailService) SendMailToNotifyUser(to, subject, body string) error {
	html, text, err := s.render(emailData{
		Title:   subject,
		Intro:   body,
		AppName: s.cfg.AppName,
		Year:    time.Now().Year(),
	})
	if err != nil {
		return err
	}
	return s.send(to, subject, html, text)
}

func (s *smtpMailService) SendGalleryDeletedNotice(to, galleryTitle string) error {
	subject := fmt.Sprintf("Gallery %q has been removed", galleryTitle)
	deletedAt := utils.FormatRFC3339(utils.FromUnixSeconds(utils.NowUnixSeconds()))
	body := fmt.Sprintf(
		"The gallery %q and all of its photos were permanently removed on %s. "+
			"If this was unexpected, reply to this email within 7 days.", galleryTitle, deletedAt)
	return s.SendMailToNotifyUser(to, subject, body)
}

func (s *smtpMailService) render(data emailData) (string, string, error) {
	var htmlBuf, textBuf bytes.Buffer
	if err := s.htmlTpl.Execute(&htmlBuf, data); err != nil {
		return "", "", err
	}
	if err := s.textTpl.Execute(&textBuf, data); err != nil {
		return "", "", err
	}
	return htmlBuf.String(), textBuf.String(), nil
}

func (s *smtpMailService) send(to, subject, htmlBody, textBody string) error {
	boundary := "np-fotolio-alt"
	headers := []string{
		fmt.Sprintf("From: %s <%s>", s.cfg.FromName, s.cfg.From),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		fmt.Sprintf("Content-Type: multipart/alternative; boundary=%q", boundary),
	}

	var msg strings.Builder
	msg.WriteString(strings.Join(headers, "\r\n"))
	msg.WriteString("\r\n\r\n")
	msg.WriteString(fmt.Sprintf("--%s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s\r\n", boundary, textBody))
	msg.WriteString(fmt.Sprintf("--%s\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s\r\n", boundary, htmlBody))
	msg.WriteString(fmt.Sprintf("--%s--\r\n", boundary))

	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprintf("%d", s.cfg.Port))

	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if s.cfg.Username != "" {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(s.cfg.From); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	writer, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := writer.Write([]byte(msg.String())); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}
	return client.Quit()
}

const baseHTMLTemplate = `<!doctype html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width,initial-scale=1">
  <title>{{.Title}}</title>
</head>
<body style="margin:0;padding:24px;background:#0f172a;color:#ffffff;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,Helvetica,Arial,sans-serif;">
  <div style="max-width:560px;margin:0 auto;background:#1e293b;border-radius:12px;padding:32px;">
    <h1 style="font-size:20px;margin-top:0;">{{.Title}}</h1>
    <p style="line-height:1.6;color:#cbd5e1;">{{.Intro}}</p>
    <p style="margin-top:32px;font-size:12px;color:#64748b;">&copy; {{.Year}} {{.AppName}}</p>
  </div>
</body>
</html>`

const plainTextTemplate = `{{.Title}}

{{.Intro}}

-- {{.AppName}}`
