package backend

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/trititantech/server/pkg/connection"
	"github.com/trititantech/server/pkg/db"
	"github.com/trititantech/server/pkg/download"
	"github.com/trititantech/server/pkg/model"
)

const (
	DefaultProduct      = "General"
	DefaultDownloadName = "download"

	unknownClient = "unknown"
)

type Options struct {
	DefaultProduct      string
	DownloadDefaultName string
	DownloadSuffix      string
	HeartbeatInterval   time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

type backend struct {
	defaultProduct      string
	downloadDefaultName string
	downloadSuffix      string
	heartbeatInterval   time.Duration
	now                 func() time.Time

	conn   *connection.Manager
	source download.Source
	log    *logrus.Entry
}

func NewBackend(conn *connection.Manager, source download.Source, opts Options, log *logrus.Entry) Backend {
	if opts.DefaultProduct == "" {
		opts.DefaultProduct = DefaultProduct
	}
	if opts.DownloadDefaultName == "" {
		opts.DownloadDefaultName = DefaultDownloadName
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	return &backend{
		defaultProduct:      opts.DefaultProduct,
		downloadDefaultName: opts.DownloadDefaultName,
		downloadSuffix:      opts.DownloadSuffix,
		heartbeatInterval:   opts.HeartbeatInterval,
		now:                 opts.Now,
		conn:                conn,
		source:              source,
		log:                 log.WithField("component", "backend"),
	}
}

// NormalizeRecord trims every field, lowercases the email and fills defaults.
// It fails with a ValidationError when name, email or phone is blank.
func NormalizeRecord(input model.RecordRequest, defaultProduct string) (db.Record, error) {
	record := db.Record{
		Name:    strings.TrimSpace(input.Name),
		Email:   strings.ToLower(strings.TrimSpace(input.Email)),
		Phone:   strings.TrimSpace(input.Phone),
		Product: strings.TrimSpace(input.Product),
	}

	var missing []string
	if record.Name == "" {
		missing = append(missing, "name")
	}
	if record.Email == "" {
		missing = append(missing, "email")
	}
	if record.Phone == "" {
		missing = append(missing, "phone")
	}
	if len(missing) > 0 {
		return db.Record{}, &ValidationError{Missing: missing}
	}

	if record.Product == "" {
		record.Product = defaultProduct
	}

	return record, nil
}

func (b *backend) CreateRecord(ctx context.Context, input model.RecordRequest, client model.ClientInfo) (string, error) {
	record, err := NormalizeRecord(input, b.defaultProduct)
	if err != nil {
		return "", err
	}

	database, err := b.conn.EnsureConnected(ctx)
	if err != nil {
		return "", storageUnavailable(err)
	}

	record.CreatedAt = b.now().UTC()
	record.SourceIP = orUnknown(client.IP)
	record.UserAgent = orUnknown(client.UserAgent)

	id, err := database.InsertRecord(ctx, record)
	if err != nil {
		if errors.Is(err, db.ErrDuplicateKey) {
			return "", ErrDuplicateEmail
		}
		return "", storageError("insert record", err)
	}

	b.log.WithField("id", id).Info("record saved")
	return id, nil
}

func (b *backend) ListRecords(ctx context.Context) ([]db.Record, error) {
	database, err := b.conn.EnsureConnected(ctx)
	if err != nil {
		return nil, storageUnavailable(err)
	}

	records, err := database.ListRecords(ctx)
	if err != nil {
		return nil, storageError("list records", err)
	}
	return records, nil
}

func (b *backend) CountRecords(ctx context.Context) (int64, error) {
	database, err := b.conn.EnsureConnected(ctx)
	if err != nil {
		return 0, storageUnavailable(err)
	}

	count, err := database.CountRecords(ctx)
	if err != nil {
		return 0, storageError("count records", err)
	}
	return count, nil
}

func (b *backend) ConnectionState() connection.State {
	return b.conn.State()
}

func (b *backend) LastConnectionError() error {
	return b.conn.LastError()
}

func (b *backend) Download(ctx context.Context, name string) (model.Download, error) {
	filename := download.Filename(name, b.downloadDefaultName, b.downloadSuffix)
	b.log.WithField("filename", filename).Debug("download requested")

	if b.source == nil {
		return model.Download{}, upstreamError(errors.New("no download source configured"))
	}

	body, err := b.source.Fetch(ctx)
	if err != nil {
		return model.Download{}, upstreamError(err)
	}

	return model.Download{
		Filename: filename,
		Body:     body,
	}, nil
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return unknownClient
	}
	return s
}
