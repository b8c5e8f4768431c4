package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/opacity/internal/flagx"
	"github.com/dmitrijs2005/opacity/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Pointer fields
// distinguish "absent" from zero so the file only overrides what it names.
type JsonConfig struct {
	EndpointAddrHTTP           *string         `json:"endpoint_addr_http"`
	DatabaseDSN                *string         `json:"database_dsn"`
	SecretKey                  *string         `json:"secret_key"`
	CredentialValidityDuration *timex.Duration `json:"credential_validity_duration"`

	BlobBackend      *string `json:"blob_backend"`
	BlobDir          *string `json:"blob_dir"`
	S3RootUser       *string `json:"s3_root_user"`
	S3RootPassword   *string `json:"s3_root_password"`
	S3Bucket         *string `json:"s3_bucket"`
	S3Region         *string `json:"s3_region"`
	S3BaseEndpoint   *string `json:"s3_base_endpoint"`
	S3PublicEndpoint *string `json:"s3_public_endpoint"`

	RedisURL     *string `json:"redis_url"`
	GeminiAPIKey *string `json:"gemini_api_key"`
	GeminiModel  *string `json:"gemini_model"`

	MaxNameLength      *int   `json:"max_name_length"`
	PageSize           *int   `json:"page_size"`
	MaxLikePeople      *int   `json:"max_like_people"`
	MaxDimensionsFirst *int   `json:"max_dimensions_first"`
	MaxUploadBytes     *int64 `json:"max_upload_bytes"`

	LogLevel  *string `json:"log_level"`
	LogFormat *string `json:"log_format"`
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// parseJson overlays values from the file named by -c/-config onto config.
// A missing flag loads nothing; an unreadable or invalid file panics.
func parseJson(config *Config) {
	path := flagx.ConfigFile(os.Args[1:])
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	set(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	set(&config.DatabaseDSN, c.DatabaseDSN)
	set(&config.SecretKey, c.SecretKey)
	if c.CredentialValidityDuration != nil {
		config.CredentialValidityDuration = c.CredentialValidityDuration.Duration
	}

	set(&config.BlobBackend, c.BlobBackend)
	set(&config.BlobDir, c.BlobDir)
	set(&config.S3RootUser, c.S3RootUser)
	set(&config.S3RootPassword, c.S3RootPassword)
	set(&config.S3Bucket, c.S3Bucket)
	set(&config.S3Region, c.S3Region)
	set(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	set(&config.S3PublicEndpoint, c.S3PublicEndpoint)

	set(&config.RedisURL, c.RedisURL)
	set(&config.GeminiAPIKey, c.GeminiAPIKey)
	set(&config.GeminiModel, c.GeminiModel)

	set(&config.MaxNameLength, c.MaxNameLength)
	set(&config.PageSize, c.PageSize)
	set(&config.MaxLikePeople, c.MaxLikePeople)
	set(&config.MaxDimensionsFirst, c.MaxDimensionsFirst)
	set(&config.MaxUploadBytes, c.MaxUploadBytes)

	set(&config.LogLevel, c.LogLevel)
	set(&config.LogFormat, c.LogFormat)
}
