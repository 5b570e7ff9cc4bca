// Package config provides centralized configuration management for LeadPulse.
// It handles loading configuration from multiple sources, validation, and provides
// a type-safe API for accessing configuration values throughout the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. YAML configuration file
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern LEADPULSE_<SECTION>_<FIELD>:
//
//	LEADPULSE_SERVER_PORT=8080
//	LEADPULSE_LOGGING_LEVEL=debug
//	LEADPULSE_SCHEMA_DEPOSIT_COLUMN=deposits_total_in_usd
//	LEADPULSE_EXPORT_DEFAULT_FORMAT=xlsx
//
// # Configuration File
//
// The file is taken from LEADPULSE_CONFIG_FILE, or the first of
// leadpulse.yaml and configs/leadpulse.yaml that exists:
//
//	schema:
//	  attribution_column: utm_hit
//	  attribution_prefix: utm_hit_
//	  join_column: created_at
//	export:
//	  bom: true
package config
