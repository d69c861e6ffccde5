package vm

import (
	"fmt"

	"github.com/clydemeng/fvm/params"
)

// Revision selects the instruction set and cost rules of the engine. The
// numeric values are the ones the native engine understands.
type Revision int32

const (
	RevAion   Revision = 5
	RevAionV1 Revision = 7
)

func (r Revision) String() string {
	switch r {
	case RevAion:
		return "aion"
	case RevAionV1:
		return "aion-v1"
	}
	return fmt.Sprintf("Revision(%d)", int32(r))
}

// RevisionAt maps the fork rules active at the given block to an engine
// revision.
func RevisionAt(cfg *params.Config, number uint64) Revision {
	switch {
	case cfg.IsFork040(number):
		return RevAionV1
	default:
		return RevAion
	}
}
