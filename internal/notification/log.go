package notification

import (
	"log/slog"

	"github.com/novamall/mall-backend/internal/domain"
)

// LogSender writes verification codes to the log instead of delivering
// them. Used in development when SMTP is not configured.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a new log-backed code sender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// SendCode logs the code at warn level so it stands out in dev output.
func (s *LogSender) SendCode(to string, purpose domain.CodePurpose, code string) error {
	s.logger.Warn("SMTP not configured, logging verification code instead",
		"to", to,
		"purpose", purpose,
		"code", code,
	)
	return nil
}
