package db

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	DialectMongo  = "mongodb"
	DialectSQLite = "sqlite"
	DialectMySQL  = "mysql"

	defaultDatabaseName = "leads"
)

// ErrDuplicateKey is returned by InsertRecord when a unique index rejects the write.
var ErrDuplicateKey = errors.New("duplicate key")

type Database interface {
	InsertRecord(ctx context.Context, record Record) (string, error)
	// ListRecords returns every record, newest first.
	ListRecords(ctx context.Context) ([]Record, error)
	CountRecords(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Options describe how to open a store handle.
type Options struct {
	Dialect  string
	URI      string
	Database string
	// UniqueEmail declares a unique index on the email field.
	UniqueEmail    bool
	ConnectTimeout time.Duration
	LogLevel       string
	// OnFailure is called from driver goroutines when the handle reports a failure
	// after it was established.
	OnFailure func(error)
}

// Open dials the store described by opts and verifies it with a ping.
func Open(ctx context.Context, opts Options) (Database, error) {
	switch opts.Dialect {
	case DialectMongo, "":
		return newMongo(ctx, opts)
	case DialectSQLite, DialectMySQL:
		return newSQL(ctx, opts)
	}

	return nil, fmt.Errorf("unsupported dialect: %s", opts.Dialect)
}

// IsValidDialect reports whether Open understands the dialect.
func IsValidDialect(dialect string) bool {
	switch dialect {
	case DialectMongo, DialectSQLite, DialectMySQL:
		return true
	}
	return false
}
