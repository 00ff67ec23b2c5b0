// Package config loads the SimDash configuration.
//
// # Configuration Sources
//
// Values are resolved in this order, later sources winning:
//
//	1. Default()
//	2. A YAML file: $SIMDASH_CONFIG_FILE, ./config.yaml or ./configs/config.yaml
//	3. Environment variables
//
// # Environment Variables
//
// Variables use the SIMDASH prefix followed by the section and field:
//
//	SIMDASH_SERVER_PORT=8080
//	SIMDASH_LOGGING_LEVEL=debug
//	SIMDASH_PROCESSING_MAX_ROWS_TO_CHECK=5
//	SIMDASH_SOURCES_DATA_DIR=/var/lib/simdash
//	SIMDASH_SOURCES_GDRIVE_CREDENTIALS_FILE=/etc/simdash/sa.json
//	SIMDASH_TELEMETRY_TRACES_EXPORTER=stdout
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
