package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/trititantech/server/pkg/rand"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

const uniqueEmailIndex = "idx_records_email_unique"

type sqlDatabase struct {
	db *gorm.DB
}

// newSQL opens a gorm backed store for the sqlite and mysql dialects.
func newSQL(ctx context.Context, opts Options) (Database, error) {
	config := &gorm.Config{
		Logger:         NewLogger(opts.LogLevel),
		TranslateError: true,
	}

	var dialector gorm.Dialector
	switch opts.Dialect {
	case DialectSQLite:
		dialector = sqlite.Open(opts.URI)
	case DialectMySQL:
		dialector = mysql.Open(opts.URI)
	default:
		return nil, fmt.Errorf("unsupported dialect: %s", opts.Dialect)
	}

	db, err := gorm.Open(dialector, config)
	if err != nil {
		return nil, err
	}

	d := &sqlDatabase{db: db}
	if err := d.Ping(ctx); err != nil {
		_ = d.Close(ctx)
		return nil, err
	}

	if err := d.ensureSchema(ctx, opts.UniqueEmail); err != nil {
		_ = d.Close(ctx)
		return nil, err
	}

	return d, nil
}

func (d *sqlDatabase) ensureSchema(ctx context.Context, uniqueEmail bool) error {
	tx := d.db.WithContext(ctx)
	if err := tx.AutoMigrate(&Record{}); err != nil {
		return err
	}

	if !uniqueEmail || tx.Migrator().HasIndex(&Record{}, uniqueEmailIndex) {
		return nil
	}

	return tx.Exec(fmt.Sprintf("CREATE UNIQUE INDEX %s ON records (email)", uniqueEmailIndex)).Error
}

func (d *sqlDatabase) InsertRecord(ctx context.Context, record Record) (string, error) {
	if record.ID == "" {
		record.ID = rand.ID()
	}

	sql := d.db.WithContext(ctx).Create(&record)
	if sql.Error != nil {
		if isDuplicate(sql.Error) {
			return "", fmt.Errorf("%w: %v", ErrDuplicateKey, sql.Error)
		}
		return "", sql.Error
	}

	return record.ID, nil
}

func (d *sqlDatabase) ListRecords(ctx context.Context) ([]Record, error) {
	records := []Record{}
	sql := d.db.WithContext(ctx).Order("created_at desc").Order("id desc").Find(&records)
	return records, sql.Error
}

func (d *sqlDatabase) CountRecords(ctx context.Context) (int64, error) {
	var count int64
	sql := d.db.WithContext(ctx).Model(&Record{}).Count(&count)
	return count, sql.Error
}

func (d *sqlDatabase) Ping(ctx context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (d *sqlDatabase) Close(context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// isDuplicate covers drivers that do not translate their constraint errors.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "Error 1062")
}
