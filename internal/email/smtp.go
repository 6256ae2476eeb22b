package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/redmonkez12/account-service/internal/logging"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender renders the built-in HTML templates and sends them over SMTP.
type SMTPSender struct {
	smtpHost     string
	smtpPort     string
	smtpUser     string
	smtpPassword string
	fromEmail    string
	sendMail     sendMailFunc
}

func NewSMTPSender(smtpHost, smtpPort, smtpUser, smtpPassword, fromEmail string) *SMTPSender {
	if fromEmail == "" {
		fromEmail = smtpUser
	}
	return &SMTPSender{
		smtpHost:     smtpHost,
		smtpPort:     smtpPort,
		smtpUser:     smtpUser,
		smtpPassword: smtpPassword,
		fromEmail:    fromEmail,
		sendMail:     smtp.SendMail,
	}
}

var subjects = map[Template]string{
	TemplateExistingAccount: "You already have an account",
	TemplateNewUser:         "Finish creating your account",
	TemplateForgotPassword:  "Reset your password",
}

func (s *SMTPSender) Send(ctx context.Context, tmpl Template, recipient string, data map[string]string) error {
	logger := logging.GetLoggerFromContext(ctx)

	body, err := render(tmpl, data)
	if err != nil {
		logger.Error("failed to render email template", "template", tmpl, "error", err)
		return fmt.Errorf("render template: %w", err)
	}

	if err := s.sendEmail(recipient, subjects[tmpl], body); err != nil {
		logger.Error("failed to send email", "template", tmpl, "email", recipient, "error", err)
		return fmt.Errorf("send email: %w", err)
	}

	logger.Info("email sent", "template", tmpl, "email", recipient)
	return nil
}

func (s *SMTPSender) sendEmail(to, subject, body string) error {
	auth := smtp.PlainAuth("", s.smtpUser, s.smtpPassword, s.smtpHost)

	msg := []byte(fmt.Sprintf(
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s\r\n",
		s.fromEmail, to, subject, body,
	))

	addr := fmt.Sprintf("%s:%s", s.smtpHost, s.smtpPort)
	return s.sendMail(addr, auth, s.fromEmail, []string{to}, msg)
}

const layout = `{{define "layout"}}<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #4F46E5; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
        .content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
        .button { display: inline-block; background-color: #4F46E5; color: white !important; padding: 12px 30px; text-decoration: none; border-radius: 5px; margin: 20px 0; }
        .footer { margin-top: 30px; font-size: 12px; color: #666; text-align: center; }
    </style>
</head>
<body>
    <div class="header"><h1>{{template "title" .}}</h1></div>
    <div class="content">
        {{template "body" .}}
        <a href="{{.url}}" class="button" style="color: white !important;">{{template "action" .}}</a>
        <p>Or copy and paste this link into your browser:</p>
        <p style="word-break: break-all; color: #4F46E5;">{{.url}}</p>
    </div>
    <div class="footer">{{template "footer" .}}</div>
</body>
</html>{{end}}`

var bodies = map[Template]string{
	TemplateExistingAccount: `
{{define "title"}}Welcome back{{end}}
{{define "body"}}<p>Someone tried to sign up with this email address, but an account already exists. If you forgot your password you can reset it.</p>{{end}}
{{define "action"}}Reset Password{{end}}
{{define "footer"}}<p>If this wasn't you, you can safely ignore this email.</p>{{end}}`,

	TemplateNewUser: `
{{define "title"}}Welcome!{{end}}
{{define "body"}}<p>Thanks for signing up. Click the button below to choose a username and password and finish creating your account.</p>{{end}}
{{define "action"}}Create Account{{end}}
{{define "footer"}}<p>If you didn't request an account, you can safely ignore this email.</p>{{end}}`,

	TemplateForgotPassword: `
{{define "title"}}Password Reset Request{{end}}
{{define "body"}}<p>Hi {{.name}}, you requested to reset your password. Click the button below to create a new password.</p>{{end}}
{{define "action"}}Reset Password{{end}}
{{define "footer"}}<p>This link will expire in 30 minutes. If you didn't request a reset, your password will remain unchanged.</p>{{end}}`,
}

func render(tmpl Template, data map[string]string) (string, error) {
	body, ok := bodies[tmpl]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTemplate, tmpl)
	}

	t, err := template.New(string(tmpl)).Parse(layout)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}
	if _, err := t.Parse(body); err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}

	return buf.String(), nil
}
