package main

import (
	"os"

	"github.com/rs/zerolog"
)

type logger struct {
	mainLog   zerolog.Logger
	updateLog zerolog.Logger
}

func (l *logger) UpdateInfo(msg string) {
	l.updateLog.Info().Msg(msg)
}

func (l *logger) UpdateError(err error) {
	l.updateLog.Error().Err(err).Msg("")
}

func newLogger() *logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	return &logger{
		mainLog:   zerolog.New(os.Stderr).With().Timestamp().Str("event_name", "main").Logger(),
		updateLog: zerolog.New(os.Stderr).With().Timestamp().Stack().Str("event_name", "update").Logger(),
	}
}
