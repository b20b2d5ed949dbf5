package bisync

import "time"

// TimestampFormat is the layout rclone uses for listing timestamps.
// Second precision, no zone.
const TimestampFormat = "2006-01-02 15:04:05"

// FileAttributes is one observation of a file on one side of the pair.
// A nil *FileAttributes means the file was absent in that observation.
type FileAttributes struct {
	Size    int64
	ModTime time.Time
}

// Equal reports whether two observations describe the same file state.
// Absent equals absent; present observations compare size and the
// second-truncated modification time exactly, no tolerance window.
func (f *FileAttributes) Equal(other *FileAttributes) bool {
	if f == nil || other == nil {
		return f == nil && other == nil
	}
	return f.Size == other.Size &&
		f.ModTime.Truncate(time.Second).Equal(other.ModTime.Truncate(time.Second))
}

// Side identifies one endpoint of the pair. Sides are assigned after
// order normalization, so side A is stable across runs regardless of
// argument order.
type Side uint8

const (
	SideA Side = iota + 1
	SideB
)

func (s Side) String() string {
	switch s {
	case SideA:
		return "A"
	case SideB:
		return "B"
	default:
		return "?"
	}
}

// SyncEntry holds the four observations for one relative path: the
// state seen on each side this run, and the state recorded on each
// side at the end of the last successful run.
type SyncEntry struct {
	Path      string
	CurrentA  *FileAttributes
	CurrentB  *FileAttributes
	BaselineA *FileAttributes
	BaselineB *FileAttributes
}
