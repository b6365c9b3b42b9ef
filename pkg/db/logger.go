package db

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// gormLogger sends gorm's output through logrus so it shares the service's formatter.
type gormLogger struct {
	log   *logrus.Entry
	level logger.LogLevel
}

// NewLogger maps a logrus level name onto a gorm logger.
func NewLogger(level string) logger.Interface {
	l := &gormLogger{
		log: logrus.WithField("component", "gorm"),
	}

	switch level {
	case "trace", "debug":
		l.level = logger.Info
	case "info", "warn":
		l.level = logger.Warn
	case "error":
		l.level = logger.Error
	default:
		l.level = logger.Silent
	}

	return l
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	n := *l
	n.level = level
	return &n
}

func (l *gormLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Info {
		l.log.Infof(msg, args...)
	}
}

func (l *gormLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Warn {
		l.log.Warnf(msg, args...)
	}
}

func (l *gormLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Error {
		l.log.Errorf(msg, args...)
	}
}

func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && l.level >= logger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		l.log.WithError(err).WithFields(logrus.Fields{
			"sql":      sql,
			"rows":     rows,
			"duration": elapsed,
		}).Error("query failed")
	case elapsed > slowQueryThreshold && l.level >= logger.Warn:
		sql, rows := fc()
		l.log.WithFields(logrus.Fields{
			"sql":      sql,
			"rows":     rows,
			"duration": elapsed,
		}).Warn("slow query")
	case l.level >= logger.Info:
		sql, rows := fc()
		l.log.WithFields(logrus.Fields{
			"sql":      sql,
			"rows":     rows,
			"duration": elapsed,
		}).Debug("query")
	}
}
