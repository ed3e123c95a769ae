package rqlitec

import "github.com/rqlitec/rqlitec/internal/consistency"

// Consistency selects how a read is served by the cluster. Writes always
// execute at Strong regardless of what a caller passes.
type Consistency = consistency.Level

const (
	Strong = consistency.Strong
	Weak   = consistency.Weak
	None   = consistency.None
)
