package records

// StorageMode selects which backends a Manager talks to. It is fixed at
// construction.
type StorageMode int

const (
	// LocalOnly stores records in the local backend only.
	LocalOnly StorageMode = iota
	// RemoteOnly stores records in the remote backend only.
	RemoteOnly
	// Dual mirrors every record in both backends and fails on divergence.
	Dual
)

// String returns mode name.
func (m StorageMode) String() string {
	switch m {
	case LocalOnly:
		return "local-only"
	case RemoteOnly:
		return "remote-only"
	case Dual:
		return "dual"
	default:
		return "unknown"
	}
}

// usesLocal reports whether the local backend is active in this mode.
func (m StorageMode) usesLocal() bool {
	return m == LocalOnly || m == Dual
}

// usesRemote reports whether the remote backend is active in this mode.
func (m StorageMode) usesRemote() bool {
	return m == RemoteOnly || m == Dual
}
