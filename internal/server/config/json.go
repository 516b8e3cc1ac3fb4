package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/meduploads/internal/flagx"
	"github.com/dmitrijs2005/meduploads/internal/timex"
)

// JsonConfig is the on-disk shape of the optional JSON config file.
// Durations accept both "30s" strings and integer nanoseconds. Absent or zero
// fields leave the current value untouched; booleans are pointers for the
// same reason.
type JsonConfig struct {
	EndpointAddrHTTP       string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC       string         `json:"endpoint_addr_grpc"`
	DatabaseDSN            string         `json:"database_dsn"`
	ConnectionLimit        int            `json:"connection_limit"`
	SecretKey              string         `json:"secret_key"`
	UploadRoot             string         `json:"upload_root"`
	StorageBackend         string         `json:"storage_backend"`
	S3RootUser             string         `json:"s3_root_user"`
	S3RootPassword         string         `json:"s3_root_password"`
	S3Bucket               string         `json:"s3_bucket"`
	S3Region               string         `json:"s3_region"`
	S3BaseEndpoint         string         `json:"s3_base_endpoint"`
	MaxFiles               int            `json:"max_files"`
	MaxFileBytes           int64          `json:"max_file_bytes"`
	ThumbnailSize          int            `json:"thumbnail_size"`
	OCRBinary              string         `json:"ocr_binary"`
	OCRLanguage            string         `json:"ocr_language"`
	OCRTimeout             timex.Duration `json:"ocr_timeout"`
	ClassifyWorkers        int            `json:"classify_workers"`
	ProfileRequiresMedical *bool          `json:"profile_requires_medical"`
	LogFormat              string         `json:"log_format"`
}

// parseJson loads the file named by -c/-config, if any, and overlays it on
// config. Unreadable files and invalid JSON panic; configuration errors are
// fatal at startup.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setInt(&config.ConnectionLimit, c.ConnectionLimit)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.UploadRoot, c.UploadRoot)
	setString(&config.StorageBackend, c.StorageBackend)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setInt(&config.MaxFiles, c.MaxFiles)
	if c.MaxFileBytes > 0 {
		config.MaxFileBytes = c.MaxFileBytes
	}
	setInt(&config.ThumbnailSize, c.ThumbnailSize)
	setString(&config.OCRBinary, c.OCRBinary)
	setString(&config.OCRLanguage, c.OCRLanguage)
	if c.OCRTimeout.Duration > 0 {
		config.OCRTimeout = c.OCRTimeout.Duration
	}
	setInt(&config.ClassifyWorkers, c.ClassifyWorkers)
	if c.ProfileRequiresMedical != nil {
		config.ProfileRequiresMedical = *c.ProfileRequiresMedical
	}
	setString(&config.LogFormat, c.LogFormat)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
