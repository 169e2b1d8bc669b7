// Package config provides configuration for oraquery connections and statements.
package config

// Default connection settings.
const (
	DefaultDriver = "oracle"
)

// Date formats.
//
// Every session is forced into CanonicalDateFormat so that date values read
// from the driver can always be parsed with CanonicalDateLayout.
const (
	CanonicalDateFormat = "DD-MON-YYYY HH24:MI:SS"
	CanonicalDateLayout = "02-Jan-2006 15:04:05"
	CanonicalDayLayout  = "02-Jan-2006"
	DefaultDateLayout   = "02-01-2006 15:04:05"
	ZeroTimeSuffix      = " 00:00:00"
)

// Key names accepted by Config.Get.
const (
	KeyDriver            = "driver"
	KeyDefaultSchema     = "default_schema"
	KeyDefaultDatabase   = "default_database"
	KeyCredentials       = "credentials"
	KeyConnections       = "connections"
	KeyLogging           = "logging"
	KeyValidateSQLSyntax = "validate_sql_syntax"
	KeyDryRun            = "dry_run"
	KeyDateFormat        = "date_format"
	KeyAdminToken        = "admin_token"
	KeyLogTable          = "log_table"
)
