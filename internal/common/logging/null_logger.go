package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

// NullLogger discards everything. Used by tests and by components constructed without a logger.
var NullLogger = &logrus.Logger{
	Out:       io.Discard,
	Formatter: new(logrus.TextFormatter),
	Hooks:     make(logrus.LevelHooks),
	Level:     logrus.PanicLevel,
}
