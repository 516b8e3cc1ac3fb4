package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/meduploads/internal/flagx"
)

var valueFlags = []string{
	"-a", "-g", "-d", "-l", "-s", "-u", "-storage",
	"-s3-user", "-s3-password", "-s3-bucket", "-s3-region", "-s3-endpoint",
	"-max-files", "-max-file-bytes", "-thumb", "-ocr-bin", "-ocr-lang", "-ocr-timeout",
	"-w", "-log",
}

var boolFlags = []string{"-profile-medical"}

// parseFlags populates Config fields from command-line flags.
//
// Supported flags:
//
//	-a string            HTTP bind address (e.g., ":7000")
//	-g string            gRPC health bind address
//	-d string            PostgreSQL DSN
//	-l int               connection pool limit
//	-s string            JWT HMAC secret key
//	-u string            upload root directory
//	-storage string      "local" or "s3"
//	-s3-user, -s3-password, -s3-bucket, -s3-region, -s3-endpoint
//	-max-files int       files per request
//	-max-file-bytes int  bytes per file
//	-thumb int           thumbnail bounding box, px
//	-ocr-bin string      tesseract binary
//	-ocr-lang string     tesseract language
//	-ocr-timeout int     OCR timeout per file, seconds
//	-w int               classify workers per batch
//	-profile-medical     require profile pictures to pass classification
//	-log string          log format: json, text, zap
//
// os.Args is first filtered with flagx so flags owned by other components
// (such as -c) do not break parsing.
func parseFlags(config *Config) {
	args := flagx.FilterArgsWithBools(os.Args[1:], valueFlags, boolFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run http server")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "address and port to run grpc health server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.IntVar(&config.ConnectionLimit, "l", config.ConnectionLimit, "database connection limit")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.UploadRoot, "u", config.UploadRoot, "upload root directory")
	fs.StringVar(&config.StorageBackend, "storage", config.StorageBackend, "storage backend: local or s3")

	fs.StringVar(&config.S3RootUser, "s3-user", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "s3-password", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "s3-bucket", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "s3-region", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "s3-endpoint", config.S3BaseEndpoint, "S3 base endpoint")

	fs.IntVar(&config.MaxFiles, "max-files", config.MaxFiles, "max files per request")
	fs.Int64Var(&config.MaxFileBytes, "max-file-bytes", config.MaxFileBytes, "max bytes per file")
	fs.IntVar(&config.ThumbnailSize, "thumb", config.ThumbnailSize, "thumbnail bounding box (px)")

	fs.StringVar(&config.OCRBinary, "ocr-bin", config.OCRBinary, "tesseract binary")
	fs.StringVar(&config.OCRLanguage, "ocr-lang", config.OCRLanguage, "tesseract language")
	ocrTimeout := fs.Int("ocr-timeout", int(config.OCRTimeout.Seconds()), "ocr timeout per file (in seconds)")

	fs.IntVar(&config.ClassifyWorkers, "w", config.ClassifyWorkers, "classify workers per batch")
	fs.BoolVar(&config.ProfileRequiresMedical, "profile-medical", config.ProfileRequiresMedical, "profile pictures must be medical documents")
	fs.StringVar(&config.LogFormat, "log", config.LogFormat, "log format: json, text or zap")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.OCRTimeout = time.Duration(*ocrTimeout) * time.Second
}
