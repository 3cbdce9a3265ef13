package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/vyapaars/syncledger/internal/flagx"
	"github.com/vyapaars/syncledger/internal/timex"
)

// JsonConfig is an intermediate DTO for reading JSON configuration files.
// Interval fields use timex.Duration so files can say "72h" as well as a raw
// nanosecond count. After unmarshalling, values are copied into Config.
type JsonConfig struct {
	EndpointAddr         string         `json:"endpoint_addr"`
	DatabaseDSN          string         `json:"database_dsn"`
	SecretKey            string         `json:"secret_key"`
	AccessTokenValidity  timex.Duration `json:"access_token_validity"`
	RefreshTokenValidity timex.Duration `json:"refresh_token_validity"`
	S3Bucket             string         `json:"s3_bucket"`
	S3Region             string         `json:"s3_region"`
	S3BaseEndpoint       string         `json:"s3_base_endpoint"`
	ExportObjectKey      string         `json:"export_object_key"`
}

// parseJson overlays values from the JSON file named by the -c/-config flags.
// When neither flag is set, nothing is loaded. An unreadable or invalid file
// panics: a half-applied config file is worse than a crash at startup.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
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
	if c.AccessTokenValidity.Duration != 0 {
		config.AccessTokenValidity = time.Duration(c.AccessTokenValidity.Duration)
	}
	if c.RefreshTokenValidity.Duration != 0 {
		config.RefreshTokenValidity = time.Duration(c.RefreshTokenValidity.Duration)
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
	if c.ExportObjectKey != "" {
		config.ExportObjectKey = c.ExportObjectKey
	}
}
