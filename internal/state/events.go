package state

// EventKind identifies what changed in a game.
type EventKind int

const (
	GameStarted EventKind = iota
	CardFlipped
	CardsMatched
	CardsUnflipped
	TimeUpdated
	MovesUpdated
	GameWon
	GameLost
)

func (k EventKind) String() string {
	switch k {
	case GameStarted:
		return "gameStarted"
	case CardFlipped:
		return "cardFlipped"
	case CardsMatched:
		return "cardsMatched"
	case CardsUnflipped:
		return "cardsUnflipped"
	case TimeUpdated:
		return "timeUpdated"
	case MovesUpdated:
		return "movesUpdated"
	case GameWon:
		return "gameWon"
	case GameLost:
		return "gameLost"
	default:
		return "unknown"
	}
}

// Event is emitted for the presentation layer. Only the fields relevant to
// Kind are set.
type Event struct {
	Kind          EventKind
	Positions     []int
	Symbol        string
	Moves         int
	TimeRemaining int
	Score         int
}
