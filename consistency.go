package profig

import "fmt"

// Consistency is a recognized consistency level for request coordination.
//
// Levels encode to their canonical names ("LOCAL_QUORUM") when stored in a
// profile and decode strictly on read: a name that matches no level fails
// with ErrUnknownConsistency.
type Consistency uint8

// Recognized consistency levels, weakest to strongest within each group.
const (
	ConsistencyAny Consistency = iota
	ConsistencyOne
	ConsistencyTwo
	ConsistencyThree
	ConsistencyQuorum
	ConsistencyAll
	ConsistencyLocalOne
	ConsistencyLocalQuorum
	ConsistencyEachQuorum
	ConsistencySerial
	ConsistencyLocalSerial
)

// consistencyNames holds canonical names indexed by level.
var consistencyNames = []string{
	"ANY",
	"ONE",
	"TWO",
	"THREE",
	"QUORUM",
	"ALL",
	"LOCAL_ONE",
	"LOCAL_QUORUM",
	"EACH_QUORUM",
	"SERIAL",
	"LOCAL_SERIAL",
}

var consistencyByName = make(map[string]Consistency, len(consistencyNames))

func init() {
	for i, name := range consistencyNames {
		consistencyByName[name] = Consistency(i)
	}
}

// String returns the level's canonical name.
func (c Consistency) String() string {
	if int(c) < len(consistencyNames) {
		return consistencyNames[c]
	}
	return fmt.Sprintf("CONSISTENCY(%d)", uint8(c))
}

// IsValid reports whether c is a recognized level.
func (c Consistency) IsValid() bool {
	return int(c) < len(consistencyNames)
}

// ParseConsistency returns the level with the given canonical name.
// Matching is exact: lowercase or aliased spellings are not accepted.
func ParseConsistency(name string) (Consistency, error) {
	if level, ok := consistencyByName[name]; ok {
		return level, nil
	}
	return 0, &ConsistencyError{Name: name}
}

// ConsistencyNames returns the canonical names of all recognized levels in
// declaration order.
func ConsistencyNames() []string {
	names := make([]string, len(consistencyNames))
	copy(names, consistencyNames)
	return names
}
