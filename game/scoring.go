package game

// ScoreBreakdown shows each step of the round scoring formula. Useful
// in tests and in round_scored event payloads.
type ScoreBreakdown struct {
	NumberSum      int
	AfterX2        int
	ModifierBonus  int
	FlipSevenBonus int
	FinalScore     int
}

// ScoreTableau computes a tableau's round score: number sum, doubled if
// a x2 modifier is held, plus flat modifiers, plus the Flip 7 bonus at
// exactly the threshold of unique values. Busted players score 0.
func ScoreTableau(t *Tableau, rules Rules) ScoreBreakdown {
	if t.Status == StatusBusted {
		return ScoreBreakdown{}
	}

	breakdown := ScoreBreakdown{}
	for _, c := range t.Numbers {
		breakdown.NumberSum += c.Value
	}

	breakdown.AfterX2 = breakdown.NumberSum
	if t.HasX2() {
		breakdown.AfterX2 = breakdown.NumberSum * 2
	}

	for _, c := range t.Modifiers {
		breakdown.ModifierBonus += c.Modifier.Flat()
	}

	if t.UniqueValues() == rules.FlipSevenThreshold {
		breakdown.FlipSevenBonus = rules.FlipSevenBonus
	}

	breakdown.FinalScore = breakdown.AfterX2 + breakdown.ModifierBonus + breakdown.FlipSevenBonus
	return breakdown
}
