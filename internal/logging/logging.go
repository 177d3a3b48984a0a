// Package logging builds the process-wide logrus logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New returns a logger writing to stdout.  level is any logrus level name
// and falls back to info; format "text" selects the text formatter, any
// other value JSON.
func New(level, format, env string) *logrus.Logger {
	return newLogger(os.Stdout, level, format, env)
}

func newLogger(out io.Writer, level, format, env string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)
	if strings.EqualFold(format, "text") {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	if env != "" {
		log.AddHook(envHook{env: env})
	}
	return log
}

// envHook stamps every entry with the application environment.
type envHook struct{ env string }

func (envHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h envHook) Fire(e *logrus.Entry) error {
	if _, ok := e.Data["env"]; !ok {
		e.Data["env"] = h.env
	}
	return nil
}
