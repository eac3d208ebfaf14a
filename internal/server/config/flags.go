package config

import (
	"flag"
	"os"
	"time"

	"github.com/tdnguyen/roomchat/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-o string   local upload directory
//	-m int      max upload size per file, megabytes
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-s3 bool    store blobs in S3 instead of the local directory
//	-mr int     message retention, days
//	-fr int     file retention, days
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components. Duration
// flags are accepted as integers and converted to time.Duration values.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-d", "-s", "-t", "-o", "-m", "-u", "-p", "-b", "-g", "-e", "-s3", "-mr", "-fr",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")

	fs.StringVar(&config.UploadDir, "o", config.UploadDir, "local upload directory")
	maxFileSizeMB := fs.Int64("m", config.MaxFileSize>>20, "max upload size per file (in MB)")

	fs.BoolVar(&config.S3Enabled, "s3", config.S3Enabled, "store blobs in S3")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	messageRetentionDays := fs.Int("mr", int(config.MessageRetention.Hours()/24), "message retention (in days)")
	fileRetentionDays := fs.Int("fr", int(config.FileRetention.Hours()/24), "file retention (in days)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.MaxFileSize = *maxFileSizeMB << 20
	config.MessageRetention = time.Duration(*messageRetentionDays) * 24 * time.Hour
	config.FileRetention = time.Duration(*fileRetentionDays) * 24 * time.Hour
}
