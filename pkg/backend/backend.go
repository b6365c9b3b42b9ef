package backend

import (
	"context"

	"github.com/trititantech/server/pkg/connection"
	"github.com/trititantech/server/pkg/db"
	"github.com/trititantech/server/pkg/model"
)

type Backend interface {
	CreateRecord(ctx context.Context, input model.RecordRequest, client model.ClientInfo) (string, error)
	ListRecords(ctx context.Context) ([]db.Record, error)
	CountRecords(ctx context.Context) (int64, error)
	ConnectionState() connection.State
	LastConnectionError() error
	Download(ctx context.Context, name string) (model.Download, error)
	StartHeartbeatDaemon(done <-chan struct{})
}
