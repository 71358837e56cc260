package constants

// Default server configuration values
const (
	DefaultServerHost            = "127.0.0.1"
	DefaultServerPort            = 8082
	DefaultServerReadTimeoutSec  = 15
	DefaultServerWriteTimeoutSec = 15
	DefaultServerIdleTimeoutSec  = 60
	DefaultGracefulShutdownSec   = 10
	ServerErrorChannelSize       = 1
)

// Default load configuration values
const (
	DefaultMaxUploadMB      = 64
	DefaultJournalEntries   = 500
	DefaultRecentLoadsLimit = 20
)

// Default retry values used when opening the journal
const (
	DefaultRetryBackoffMs        = 200
	DefaultMaxBackoffMs          = 2000
	DefaultDatabaseRetryAttempts = 3
)

// Journal circuit breaker
const (
	DefaultJournalBreakerFailures    = 3
	DefaultJournalBreakerCoolDownSec = 30
)

// Privacy settings
const (
	DefaultNameMaskVisible = 2
	DefaultDigestLength    = 12
)

// BackupFileExtension is the only extension accepted for uploads.
const BackupFileExtension = ".xml"
