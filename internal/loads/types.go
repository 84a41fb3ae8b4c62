// Package loads assembles the as-run command history for a load under
// review by backchaining through its continuity predecessors, applying
// a type-specific merge rule at each hop.
package loads

import (
	"errors"
	"fmt"

	"github.com/skaops/thermalwatch/internal/chron"
	"github.com/skaops/thermalwatch/internal/command"
)

// #region load-type

// LoadType is the closed set of load-document types. The merge rule
// applied at each backchain hop is dispatched on this tag.
type LoadType int

const (
	// Normal is an uninterrupted weekly load.
	Normal LoadType = iota
	// TOO is a target-of-opportunity interrupt load whose commands may
	// begin before the nominal end of continuity.
	TOO
	// Stop is a load following a full commanding stop.
	Stop
	// SCS107 is a load following an autonomous safing action that
	// halted science commanding but left vehicle commanding running.
	SCS107
)

var loadTypeNames = map[LoadType]string{
	Normal: "NORMAL",
	TOO:    "TOO",
	Stop:   "STOP",
	SCS107: "SCS-107",
}

func (t LoadType) String() string {
	if s, ok := loadTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("LoadType(%d)", int(t))
}

// ParseLoadType maps a type label from a continuity record to a LoadType.
func ParseLoadType(s string) (LoadType, error) {
	for t, name := range loadTypeNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("loads: unknown load type %q", s)
}

// #endregion load-type

// #region continuity

// Continuity is a load's continuity record: the name of its
// predecessor document, the load's own type tag (how it interrupted
// that continuity), and, for Stop/SCS-107 types, the time the safing
// or stop action was asserted.
type Continuity struct {
	Name       string
	Type       LoadType
	CutoffTime chron.Secs
	CutoffDate string
}

// #endregion continuity

// #region provider

// Provider supplies load documents from an archive. Implementations
// must return commands already ordered by time.
type Provider interface {
	// Commands returns the ordered command set of the named load.
	Commands(name string) ([]command.Command, error)
	// VehicleOnlyCommands returns the subset of the named load's
	// commands that survive an SCS-107 safing action.
	VehicleOnlyCommands(name string) ([]command.Command, error)
	// Continuity returns the named load's predecessor record.
	Continuity(name string) (Continuity, error)
}

// #endregion provider

// #region errors

// ErrContinuityChain means the backward walk exceeded its hop bound
// without covering the required start time, which indicates a cyclic or
// unterminated predecessor chain.
var ErrContinuityChain = errors.New("loads: continuity chain did not terminate")

// #endregion errors
