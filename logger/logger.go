package logger

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

const projectName = "metric"

var (
	globalLogLevel     = logrus.InfoLevel
	globalLogLevelLock sync.Mutex

	projectLogger     *logrus.Entry
	projectLoggerOnce sync.Once
)

// GetProjectLogger returns the logger shared by every package of the project.
func GetProjectLogger() *logrus.Entry {
	projectLoggerOnce.Do(func() {
		projectLogger = GetLogger(projectName)
	})
	return projectLogger
}

// GetLogger creates a new logger tagged with name, at the global log level.
func GetLogger(name string) *logrus.Entry {
	globalLogLevelLock.Lock()
	defer globalLogLevelLock.Unlock()

	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(globalLogLevel)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l.WithField("name", name)
}

// SetGlobalLogLevel changes the level of the project logger and of every logger created afterwards.
func SetGlobalLogLevel(level logrus.Level) {
	globalLogLevelLock.Lock()
	globalLogLevel = level
	globalLogLevelLock.Unlock()

	GetProjectLogger().Logger.SetLevel(level)
}

// SetGlobalLogLevelFromString parses a level name such as "debug" or "warn".
func SetGlobalLogLevelFromString(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	SetGlobalLogLevel(lvl)
	return nil
}
