package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/opacity/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   credential HMAC secret key
//	-t int      credential validity, minutes (0 = never expires)
//	-k string   blob backend: fs or s3
//	-f string   blob directory for the fs backend
//	-u / -p     S3 root user / password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint
//	-o string   S3 public endpoint for presigned downloads
//	-q string   Redis URL for the enrichment queue
//	-m string   Gemini model name
//	-n int      maximum name length
//	-l string   log level
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-d", "-s", "-t", "-k", "-f", "-u", "-p", "-b", "-g", "-e", "-o", "-q", "-m", "-n", "-l",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	validity := fs.Int("t", int(config.CredentialValidityDuration.Minutes()), "credential validity (in minutes, 0 = never expires)")

	fs.StringVar(&config.BlobBackend, "k", config.BlobBackend, "blob backend (fs or s3)")
	fs.StringVar(&config.BlobDir, "f", config.BlobDir, "blob directory for the fs backend")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.S3PublicEndpoint, "o", config.S3PublicEndpoint, "S3 public endpoint for presigned downloads")

	fs.StringVar(&config.RedisURL, "q", config.RedisURL, "Redis URL for the enrichment queue")
	fs.StringVar(&config.GeminiModel, "m", config.GeminiModel, "Gemini model")
	fs.IntVar(&config.MaxNameLength, "n", config.MaxNameLength, "maximum name length")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.CredentialValidityDuration = time.Duration(*validity) * time.Minute
}
