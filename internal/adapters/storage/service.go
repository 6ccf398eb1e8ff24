// Package storage wraps S3-compatible object storage. The import pipeline
// keeps uploaded spreadsheets here between upload and execution.
package storage

import "time"

// PresignedURL is a time-limited download link for one object.
type PresignedURL struct {
	URL       string    `json:"url"`
	FileKey   string    `json:"fileKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Config interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	IsMinIOEnabled() bool
}
