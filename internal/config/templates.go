package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Discipline Journal Configuration

[server]
host = "127.0.0.1"
port = 8080
read_timeout = "15s"
write_timeout = "15s"
shutdown_timeout = "10s"
# Allowed CORS origins
cors_origins = ["*"]
# Requests per second per user (0 disables limiting)
rate_limit = 20.0
rate_burst = 40

[database]
# SQLite file; defaults to journal.db next to this file
# path = "/var/lib/discipline-journal/journal.db"

[logging]
# trace, debug, info, warn, error
level = "info"
console = true
file = false
max_size_mb = 100
max_backups = 3
max_age_days = 28

[audit]
# Append every accepted or rejected mutation to audit.log
enabled = true

[auth]
issuer = "discipline-journal"
audience = "discipline-journal-api"

[report]
# Weeks start Monday 00:00 in this timezone
timezone = "UTC"
cache_ttl = "10m"

[cache]
# memory, redis or none
backend = "memory"
redis_addr = "localhost:6379"
redis_db = 0
prefix = "journal"

[events]
# Reject event types outside falsify, forced, verify, structure, external_change
strict_types = false
`

const credentialsTemplate = `# Discipline Journal Credentials
# WARNING: Keep this file secure! Do not commit to version control.

# HS256 secret used to verify bearer tokens
jwt_secret = ""
redis_password = ""
`

func createTemplate(configDir, name, content string, perm os.FileMode) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name)
	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		return fmt.Errorf("writing %s template: %w", name, err)
	}
	return nil
}
