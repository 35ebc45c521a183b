package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Level maps a configured level name onto logrus. Unknown names log errors only.
func Level(name string) logrus.Level {
	switch name {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.ErrorLevel
	}
}

// New builds the process logger. format "json" selects the JSON formatter.
func New(level, format string, out io.Writer) *logrus.Logger {
	if out == nil {
		out = os.Stdout
	}
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(Level(level))
	if format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l
}

// Nop returns an entry that discards everything.
func Nop() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}
