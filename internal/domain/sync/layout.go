package sync

// Layout identifies one of the historical on-store backup representations.
// Exactly one layout is consulted per restore, chosen by the highest-priority
// layout that is present.
type Layout int

const (
	// LayoutArchive is the current format: a single compressed bundle under
	// ArchiveKey plus the marker.
	LayoutArchive Layout = iota

	// LayoutDirectory is the previous format: separate config, skills, and
	// workspace subtrees under structured prefixes.
	LayoutDirectory

	// LayoutLegacy is the oldest format: flat config objects at the store root.
	LayoutLegacy
)

// String returns the layout name for logs.
func (l Layout) String() string {
	switch l {
	case LayoutArchive:
		return "archive"
	case LayoutDirectory:
		return "directory"
	case LayoutLegacy:
		return "legacy"
	default:
		return "unknown"
	}
}

// RestoreOrder lists the layouts in discovery priority order.
var RestoreOrder = []Layout{LayoutArchive, LayoutDirectory, LayoutLegacy}

// Remote store keys and prefixes per layout.
const (
	// ArchiveKey is the Archive layout's single blob.
	ArchiveKey = "backup.tar.gz"

	// Directory layout subtree prefixes.
	ConfigPrefix    = "clawdbot/"
	SkillsPrefix    = "skills/"
	WorkspacePrefix = "workspace/"
)
