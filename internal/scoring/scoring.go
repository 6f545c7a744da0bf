package scoring

// Breakdown itemises a score for display.
type Breakdown struct {
	Base         int
	TimeBonus    int
	MovesPenalty int
	Total        int
}

// Calculate returns max(0, solved*100 + timeRemaining*10 - moves*5).
// solved counts cards, not pairs.
func Calculate(solved, timeRemaining, moves int) int {
	return Explain(solved, timeRemaining, moves).Total
}

// Explain computes the score and its parts.
func Explain(solved, timeRemaining, moves int) Breakdown {
	table := getScoreTable()
	b := Breakdown{
		Base:         solved * table["solvedCard"],
		TimeBonus:    timeRemaining * table["secondRemaining"],
		MovesPenalty: moves * -table["move"],
	}
	b.Total = max(0, b.Base+b.TimeBonus-b.MovesPenalty)
	return b
}

// getScoreTable returns the predefined values for the scoring events.
func getScoreTable() map[string]int {
	return map[string]int{
		"solvedCard":      100,
		"secondRemaining": 10,
		"move":            -5,
	}
}
