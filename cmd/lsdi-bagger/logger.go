package main

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"

	"github.com/ndlib/baggins/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// createLogger returns a logger writing to the configured file, or to the
// console when there is none. Close the returned Closer when done.
func createLogger(conf config.LogConfig) (zerolog.Logger, io.Closer, error) {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	level, err := conf.ParseLevel()
	if err != nil {
		return zerolog.Nop(), nil, err
	}
	var w io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	var closer io.Closer = nopCloser{}
	if conf.File != "" {
		f, err := os.OpenFile(conf.File, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return zerolog.Nop(), nil, err
		}
		w, closer = f, f
	}
	hostname, _ := os.Hostname()
	logger := zerolog.New(w).Level(level).With().Timestamp().Str("host", hostname).Logger()
	return logger, closer, nil
}
