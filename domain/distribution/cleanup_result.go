package distribution

// CleanupResult contains information about files deleted to free space
type CleanupResult struct {
	DeletedFiles []DeletedFile
	FreedBytes   int64
}

// DeletedFile represents a file that was deleted during cleanup
type DeletedFile struct {
	Name string
	Size int64
}
