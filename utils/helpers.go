package utils

// Storage backends selectable with STORAGE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

func IsValidStorageBackend(backend string) bool {
	switch backend {
	case BackendMemory, BackendFile, BackendSQLite, BackendPostgres:
		return true
	default:
		return false
	}
}
