package game

// State is the phase of the flip/compare loop
type State int

const (
	// Idle means no tile is selected
	Idle State = iota
	// AwaitingSecond means one tile is face up and waiting for its partner
	AwaitingSecond
	// Resolving means two tiles are selected and the board is locked
	Resolving
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingSecond:
		return "awaiting-second"
	case Resolving:
		return "resolving"
	default:
		return "unknown"
	}
}

// TileView is the session's view of one tile
type TileView struct {
	Index       int
	Name        string
	Revealed    bool
	Interactive bool
}

// Snapshot is a point-in-time copy of a session's state
type Snapshot struct {
	ID           string
	Deal         uint64
	State        State
	Score        int
	Locked       bool
	First        int // -1 when empty
	Second       int // -1 when empty
	MatchedPairs int
	Pairs        int
	Tiles        []TileView
}

// Complete reports whether every pair on the board has been matched
func (s Snapshot) Complete() bool {
	return s.MatchedPairs == s.Pairs
}
