// Package email delivers the account notifications.
package email

import (
	"context"
	"errors"
)

// Template names a logical notification. Each transport maps it to its own template.
type Template string

const (
	TemplateExistingAccount Template = "existing-account"
	TemplateNewUser         Template = "new-user"
	TemplateForgotPassword  Template = "forgot-password"
)

// Data keys used by the templates.
const (
	KeyURL  = "url"
	KeyName = "name"
)

var ErrUnknownTemplate = errors.New("unknown email template")

// Sender delivers a templated message to a single recipient.
type Sender interface {
	Send(ctx context.Context, tmpl Template, recipient string, data map[string]string) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, tmpl Template, recipient string, data map[string]string) error

func (f SenderFunc) Send(ctx context.Context, tmpl Template, recipient string, data map[string]string) error {
	return f(ctx, tmpl, recipient, data)
}

func (t Template) valid() bool {
	switch t {
	case TemplateExistingAccount, TemplateNewUser, TemplateForgotPassword:
		return true
	}
	return false
}
