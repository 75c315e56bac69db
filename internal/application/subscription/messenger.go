package subscription

import "log/slog"

// LogMessenger writes user feedback to the structured log. It is the
// default Messenger when no richer delivery channel is wired; transports
// may substitute their own.
type LogMessenger struct {
	log *slog.Logger
}

func NewLogMessenger(log *slog.Logger) *LogMessenger {
	if log == nil {
		log = slog.Default()
	}
	return &LogMessenger{log: log}
}

func (m *LogMessenger) Send(userID, text string) {
	m.log.Info("user message", "user_id", userID, "text", text)
}
