package types

import (
	"fmt"
	"strings"
)

// NodeFlag is the per-node boundary condition bitmask. The temperature
// markers are per axis the way the velocity markers are, so a node on a
// corner can carry more than one of them.
type NodeFlag uint32

const (
	TBX  NodeFlag = 1 << iota // fixed temperature, axis 0
	TBY                       // fixed temperature, axis 1
	TBZ                       // fixed temperature, axis 2 (vertical in 3D)
	FBZ                       // prescribed heat flux through the vertical faces
	SKIP                      // seam copy owned by another cap, excluded from global sums
)

const NoFlag NodeFlag = 0

var FlagNameMap = map[string]NodeFlag{
	"tbx":       TBX,
	"tby":       TBY,
	"tbz":       TBZ,
	"fbz":       FBZ,
	"flux":      FBZ,
	"neuman":    FBZ,
	"skip":      SKIP,
	"dirichlet": TBZ,
}

var flagNames = []struct {
	f    NodeFlag
	name string
}{
	{TBX, "TBX"}, {TBY, "TBY"}, {TBZ, "TBZ"}, {FBZ, "FBZ"}, {SKIP, "SKIP"},
}

// TemperatureBC returns the Dirichlet marker for the given axis.
func TemperatureBC(axis int) NodeFlag {
	switch axis {
	case 0:
		return TBX
	case 1:
		return TBY
	default:
		return TBZ
	}
}

func (f NodeFlag) Dirichlet() bool { return f&(TBX|TBY|TBZ) != 0 }
func (f NodeFlag) Flux() bool      { return f&FBZ != 0 }
func (f NodeFlag) Skip() bool      { return f&SKIP != 0 }

func (f NodeFlag) String() string {
	if f == NoFlag {
		return "None"
	}
	var parts []string
	for _, fn := range flagNames {
		if f&fn.f != 0 {
			parts = append(parts, fn.name)
		}
	}
	return strings.Join(parts, "|")
}

// NewNodeFlag parses a '|' or ',' separated list of flag names.
func NewNodeFlag(label string) (f NodeFlag, err error) {
	label = strings.ToLower(strings.TrimSpace(label))
	if len(label) == 0 || label == "none" {
		return NoFlag, nil
	}
	for _, tok := range strings.FieldsFunc(label, func(r rune) bool { return r == '|' || r == ',' }) {
		tok = strings.TrimSpace(tok)
		val, ok := FlagNameMap[tok]
		if !ok {
			return NoFlag, fmt.Errorf("unknown node flag [%s]", tok)
		}
		f |= val
	}
	return
}
