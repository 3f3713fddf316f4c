// Package config manages application configuration for the festival registration service.
//
// Configuration is read from environment variables with caarlos0/env struct
// tags. A .env file, when present, is loaded first with godotenv:
//
//	cfg, err := config.Load(".env")
//	if err != nil { ... }
//	if err := cfg.Validate(); err != nil { ... }
//
// # Configuration Groups
//
//   - ServerConfig: HTTP server settings (port, timeouts, CORS, submit rate limit)
//   - StorageConfig: backend selection (memory, sqlite, surrealdb)
//   - DatabaseConfig: SurrealDB connection settings
//   - AdminConfig: bcrypt hash of the maintenance bearer token
//   - CatalogConfig: seed file and language diversity rule
//   - TracingConfig: OpenTelemetry OTLP exporter
//
// # Environment Variables
//
//	SERVER_PORT             - HTTP server port (default: 8080)
//	STORAGE_DRIVER          - memory | sqlite | surrealdb (default: memory)
//	SQLITE_PATH             - SQLite database file (default: festreg.sqlite)
//	DB_HOST, DB_PORT        - SurrealDB address
//	ADMIN_TOKEN_HASH        - bcrypt hash from `festctl token hash`
//	CATALOG_SEED_FILE       - HCL catalog applied at startup
//	DIVERSITY_EVENTS        - comma-separated events needing several languages
//	TRACING_ENABLED         - export spans over OTLP/HTTP
package config
