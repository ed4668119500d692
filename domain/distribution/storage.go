package distribution

// StorageInfo represents remote storage quota information
type StorageInfo struct {
	TotalBytes     int64
	UsedBytes      int64
	AvailableBytes int64
}

// HasSpaceFor returns true if there's enough space for the given bytes.
// A zero TotalBytes means the quota is unlimited.
func (s StorageInfo) HasSpaceFor(bytes int64) bool {
	if s.TotalBytes == 0 {
		return true
	}
	return s.AvailableBytes >= bytes
}
