package config

import (
	"encoding/json"
	"os"

	"github.com/tdnguyen/roomchat/internal/flagx"
	"github.com/tdnguyen/roomchat/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "24h" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files. After unmarshalling, set fields are copied into the
// runtime Config struct which uses time.Duration.
type JsonConfig struct {
	EndpointAddr                string         `json:"endpoint_addr"`
	DatabaseDSN                 string         `json:"database_dsn"`
	SecretKey                   string         `json:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	AdminUsername               string         `json:"admin_username"`
	AdminPassword               string         `json:"admin_password"`
	UploadDir                   string         `json:"upload_dir"`
	S3Enabled                   *bool          `json:"s3_enabled"`
	S3RootUser                  string         `json:"s3_root_user"`
	S3RootPassword              string         `json:"s3_root_password"`
	S3Bucket                    string         `json:"s3_bucket"`
	S3Region                    string         `json:"s3_region"`
	S3BaseEndpoint              string         `json:"s3_base_endpoint"`
	MaxFileSize                 int64          `json:"max_file_size"`
	MessageRetention            timex.Duration `json:"message_retention"`
	FileRetention               timex.Duration `json:"file_retention"`
	HistoryMessageLimit         int            `json:"history_message_limit"`
	HistoryFileLimit            int            `json:"history_file_limit"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path is taken from the -c or -config command-line flags; if
// neither is set, no JSON file is loaded. Fields absent from the file keep
// their current (default) values. If the file cannot be read or contains
// invalid JSON, the function panics.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.EndpointAddr != "" {
		config.EndpointAddr = c.EndpointAddr
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.SecretKey != "" {
		config.SecretKey = c.SecretKey
	}
	if c.AccessTokenValidityDuration.Duration != 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.AdminUsername != "" {
		config.AdminUsername = c.AdminUsername
	}
	if c.AdminPassword != "" {
		config.AdminPassword = c.AdminPassword
	}
	if c.UploadDir != "" {
		config.UploadDir = c.UploadDir
	}
	if c.S3Enabled != nil {
		config.S3Enabled = *c.S3Enabled
	}
	if c.S3RootUser != "" {
		config.S3RootUser = c.S3RootUser
	}
	if c.S3RootPassword != "" {
		config.S3RootPassword = c.S3RootPassword
	}
	if c.S3Bucket != "" {
		config.S3Bucket = c.S3Bucket
	}
	if c.S3Region != "" {
		config.S3Region = c.S3Region
	}
	if c.S3BaseEndpoint != "" {
		config.S3BaseEndpoint = c.S3BaseEndpoint
	}
	if c.MaxFileSize != 0 {
		config.MaxFileSize = c.MaxFileSize
	}
	if c.MessageRetention.Duration != 0 {
		config.MessageRetention = c.MessageRetention.Duration
	}
	if c.FileRetention.Duration != 0 {
		config.FileRetention = c.FileRetention.Duration
	}
	if c.HistoryMessageLimit != 0 {
		config.HistoryMessageLimit = c.HistoryMessageLimit
	}
	if c.HistoryFileLimit != 0 {
		config.HistoryFileLimit = c.HistoryFileLimit
	}
}
