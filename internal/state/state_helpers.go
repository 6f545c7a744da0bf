package state

import "slices"

func (s State) InRange(pos int) bool {
	return pos >= 0 && pos < len(s.Cards)
}

func (s State) IsSolved(pos int) bool {
	return slices.Contains(s.Solved, pos)
}

func (s State) IsFlipped(pos int) bool {
	return slices.Contains(s.Flipped, pos)
}

// IsRevealed reports whether the card at pos shows its symbol.
func (s State) IsRevealed(pos int) bool {
	return s.IsSolved(pos) || s.IsFlipped(pos)
}

// AwaitingResolution is true while a flipped pair waits to be resolved.
func (s State) AwaitingResolution() bool {
	return len(s.Flipped) == 2
}

// CanFlip applies the rules that silently ignore a flip.
func (s State) CanFlip(pos int) bool {
	return s.Started &&
		!s.Over &&
		s.InRange(pos) &&
		!s.AwaitingResolution() &&
		!s.IsFlipped(pos) &&
		!s.IsSolved(pos)
}

func (s State) AllSolved() bool {
	return len(s.Cards) > 0 && len(s.Solved) == len(s.Cards)
}

// PairsSolved counts matched pairs.
func (s State) PairsSolved() int {
	return len(s.Solved) / 2
}

func (s State) IsPlaying() bool {
	return s.Started && !s.Over
}
