package emr

import "github.com/rs/zerolog/log"

// Notifier receives the user-visible outcome of each workflow operation.
// Every error is handled at the triggering operation and surfaced here;
// nothing is re-thrown to a global handler.
type Notifier interface {
	Success(msg string)
	Error(msg string)
	Info(msg string)
}

// LogNotifier is the default notifier: messages go to the log only.
type LogNotifier struct{}

func (LogNotifier) Success(msg string) {
	log.Info().Str("alert", "success").Msg(msg)
}

func (LogNotifier) Error(msg string) {
	log.Warn().Str("alert", "error").Msg(msg)
}

func (LogNotifier) Info(msg string) {
	log.Info().Str("alert", "info").Msg(msg)
}
