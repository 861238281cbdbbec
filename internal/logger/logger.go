package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var Log = newLogger()

func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		ForceColors:      true,
		DisableTimestamp: true,
	})

	if os.Getenv("DEBUG") == "1" {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}

	return log
}

func SetDebug(on bool) {
	if on {
		Log.SetLevel(logrus.DebugLevel)
	}
}

// Mute sends logs to w, the tui owns the terminal while running
func Mute(w io.Writer) {
	Log.SetOutput(w)
}
