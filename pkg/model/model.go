package model

import (
	"time"

	"github.com/trititantech/server/pkg/db"
)

type RecordRequest struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Product string `json:"product,omitempty"`
}

// ClientInfo is the best-effort request metadata stored with a record.
type ClientInfo struct {
	IP        string
	UserAgent string
}

type CreateRecordResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

type ListRecordsResponse struct {
	Success bool        `json:"success"`
	Count   int         `json:"count"`
	Users   []db.Record `json:"users"`
}

type HealthResponse struct {
	Status      string    `json:"status"`
	Message     string    `json:"message"`
	MongoDB     string    `json:"mongodb"`
	MongoURI    string    `json:"mongoUri"`
	IsConnected bool      `json:"isConnected"`
	LastError   string    `json:"lastError,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

type TestDBResponse struct {
	Success         bool   `json:"success"`
	Message         string `json:"message,omitempty"`
	UserCount       int64  `json:"userCount"`
	ConnectionState string `json:"connectionState"`
}

type RootResponse struct {
	Message   string   `json:"message"`
	Version   string   `json:"version"`
	Endpoints []string `json:"endpoints"`
}

type ErrorResponse struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	Error           string `json:"error,omitempty"`
	ConnectionState string `json:"connectionState,omitempty"`
}

// Download is a fully buffered attachment ready to be written to the client.
type Download struct {
	Filename string
	Body     []byte
}
