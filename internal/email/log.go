package email

import (
	"context"

	"github.com/redmonkez12/account-service/internal/logging"
)

// LogSender only logs messages. Used in development.
type LogSender struct {
	logger *logging.Logger
}

func NewLogSender(logger *logging.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (l *LogSender) Send(_ context.Context, tmpl Template, recipient string, data map[string]string) error {
	l.logger.Info("email not delivered (log transport)",
		"template", tmpl,
		"email", recipient,
		"url", data[KeyURL],
	)
	return nil
}
