package bisync

type OpType uint8

var opTypeNames = []string{
	"CopyAToB",
	"CopyBToA",
	"DeleteA",
	"DeleteB",
	"Conflict",
}

const (
	OpCopyAToB OpType = iota
	OpCopyBToA
	OpDeleteA
	OpDeleteB
	OpConflict
)

// SyncOperation is one per-path decision together with the four
// observations that produced it.
type SyncOperation struct {
	Op        OpType
	RelPath   string
	CurrentA  *FileAttributes
	CurrentB  *FileAttributes
	BaselineA *FileAttributes
	BaselineB *FileAttributes
}

func (op OpType) String() string {
	return opTypeNames[op]
}

// IsDelete reports whether the operation removes a file rather than
// transferring one.
func (op OpType) IsDelete() bool {
	return op == OpDeleteA || op == OpDeleteB
}
