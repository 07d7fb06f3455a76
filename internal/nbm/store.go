package nbm

// ListSnapshot is the stored form of one resource list.
type ListSnapshot struct {
	Name      string
	Resources []Record
}

// RegistrySnapshot is the stored form of a registry. Selected is the position
// of the selected list in Lists, or -1 when none is selected.
type RegistrySnapshot struct {
	Lists    []ListSnapshot
	Selected int
}

// RegistryStore persists registry snapshots.
type RegistryStore interface {
	// SaveRegistry replaces whatever was stored with snap.
	SaveRegistry(snap *RegistrySnapshot) error

	// LoadRegistry returns the stored snapshot, or nil if nothing has been
	// saved yet.
	LoadRegistry() (*RegistrySnapshot, error)
}
