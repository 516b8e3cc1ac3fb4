package config

import (
	"fmt"
	"net/url"

	"github.com/spf13/viper"
)

// envPrefix namespaces the environment variables read by parseEnv, e.g.
// MEDUPLOADS_DATABASE_DSN.
const envPrefix = "MEDUPLOADS"

// parseEnv overlays environment variables on config. Besides the prefixed
// names it honours PORT, JWTSECRET, CONNECTION_LIMIT and the POSTGRES_* set
// used by existing deployments.
func parseEnv(config *Config) {
	v := newEnvViper()

	if v.IsSet("port") {
		config.EndpointAddrHTTP = ":" + v.GetString("port")
	}
	if v.IsSet("http_addr") {
		config.EndpointAddrHTTP = v.GetString("http_addr")
	}
	if v.IsSet("grpc_addr") {
		config.EndpointAddrGRPC = v.GetString("grpc_addr")
	}
	if dsn := postgresDSN(v); dsn != "" {
		config.DatabaseDSN = dsn
	}
	if v.IsSet("database_dsn") {
		config.DatabaseDSN = v.GetString("database_dsn")
	}
	if v.IsSet("connection_limit") {
		config.ConnectionLimit = v.GetInt("connection_limit")
	}
	if v.IsSet("secret_key") {
		config.SecretKey = v.GetString("secret_key")
	}
	if v.IsSet("upload_root") {
		config.UploadRoot = v.GetString("upload_root")
	}
	if v.IsSet("storage_backend") {
		config.StorageBackend = v.GetString("storage_backend")
	}
	if v.IsSet("s3_root_user") {
		config.S3RootUser = v.GetString("s3_root_user")
	}
	if v.IsSet("s3_root_password") {
		config.S3RootPassword = v.GetString("s3_root_password")
	}
	if v.IsSet("s3_bucket") {
		config.S3Bucket = v.GetString("s3_bucket")
	}
	if v.IsSet("s3_region") {
		config.S3Region = v.GetString("s3_region")
	}
	if v.IsSet("s3_base_endpoint") {
		config.S3BaseEndpoint = v.GetString("s3_base_endpoint")
	}
	if v.IsSet("max_files") {
		config.MaxFiles = v.GetInt("max_files")
	}
	if v.IsSet("max_file_bytes") {
		config.MaxFileBytes = v.GetInt64("max_file_bytes")
	}
	if v.IsSet("thumbnail_size") {
		config.ThumbnailSize = v.GetInt("thumbnail_size")
	}
	if v.IsSet("ocr_binary") {
		config.OCRBinary = v.GetString("ocr_binary")
	}
	if v.IsSet("ocr_language") {
		config.OCRLanguage = v.GetString("ocr_language")
	}
	if v.IsSet("ocr_timeout") {
		config.OCRTimeout = v.GetDuration("ocr_timeout")
	}
	if v.IsSet("classify_workers") {
		config.ClassifyWorkers = v.GetInt("classify_workers")
	}
	if v.IsSet("profile_requires_medical") {
		config.ProfileRequiresMedical = v.GetBool("profile_requires_medical")
	}
	if v.IsSet("log_format") {
		config.LogFormat = v.GetString("log_format")
	}
}

func newEnvViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	// Unprefixed names kept for compatibility.
	_ = v.BindEnv("port", "PORT")
	_ = v.BindEnv("secret_key", envPrefix+"_SECRET_KEY", "JWTSECRET")
	_ = v.BindEnv("connection_limit", envPrefix+"_CONNECTION_LIMIT", "CONNECTION_LIMIT")
	_ = v.BindEnv("postgres_host", "POSTGRES_HOST")
	_ = v.BindEnv("postgres_port", "POSTGRES_PORT")
	_ = v.BindEnv("postgres_user", "POSTGRES_USER")
	_ = v.BindEnv("postgres_password", "POSTGRES_PASSWORD")
	_ = v.BindEnv("postgres_database", "POSTGRES_DATABASE")

	return v
}

// postgresDSN assembles a DSN from POSTGRES_* variables; it returns "" unless
// at least the host is set.
func postgresDSN(v *viper.Viper) string {
	if !v.IsSet("postgres_host") {
		return ""
	}

	port := "5432"
	if v.IsSet("postgres_port") {
		port = v.GetString("postgres_port")
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(v.GetString("postgres_user"), v.GetString("postgres_password")),
		Host:     fmt.Sprintf("%s:%s", v.GetString("postgres_host"), port),
		Path:     "/" + v.GetString("postgres_database"),
		RawQuery: "sslmode=disable",
	}
	return u.String()
}
