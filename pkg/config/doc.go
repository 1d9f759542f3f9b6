// Package config loads permgate configuration from the environment.
//
// Every variable is prefixed with PERMGATE_. Nested sections add their own
// segment, so the backend type is PERMGATE_BACKEND_TYPE and the audit log path
// is PERMGATE_AUDIT_PATH.
//
// Backend:
//
//	PERMGATE_BACKEND_TYPE="file"            # file, memory, redis, s3, sql
//	PERMGATE_BACKEND_ROOT="."
//	PERMGATE_BACKEND_REDIS_URL="redis://localhost:6379/0"
//	PERMGATE_BACKEND_S3_BUCKET="rbac-config"
//	PERMGATE_BACKEND_SQL_DRIVER="postgres"
//	PERMGATE_BACKEND_SQL_DSN="postgres://localhost/permgate?sslmode=disable"
//
// Documents:
//
//	PERMGATE_PERMISSIONS_DOCUMENT="config/RolePermissions.yaml"
//	PERMGATE_USERS_DOCUMENT="config/UserRegistry.yaml"
//
// Audit, cache and logging:
//
//	PERMGATE_AUDIT_PATH="rbac.log"
//	PERMGATE_AUDIT_MAX_SIZE="10485760"      # bytes, 0 disables rotation
//	PERMGATE_AUDIT_MIRROR="true"            # also log records via logrus
//	PERMGATE_CACHE_SIZE="1024"              # 0 disables the context cache
//	PERMGATE_CACHE_TTL="30s"
//	PERMGATE_LOG_LEVEL="info"
//	PERMGATE_LOG_FORMAT="json"
//
// Serving:
//
//	PERMGATE_OPS_ADDR=":9090"
//	PERMGATE_RELOAD_WATCH="true"
//	PERMGATE_RELOAD_SCHEDULE="@every 5m"
//	PERMGATE_OTEL_ENABLED="true"
//	PERMGATE_OTEL_ENDPOINT="otel-collector:4317"
//
// A .env file in the working directory is read by the CLI before the
// environment is processed.
package config
