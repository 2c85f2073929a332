package edit

// Counts tallies an edit script by kind
type Counts struct {
	Inserts int `json:"inserts"`
	Deletes int `json:"deletes"`
	Updates int `json:"updates"`
	Moves   int `json:"moves"`
}

// Total is the unit-cost edit distance
func (c Counts) Total() int {
	return c.Inserts + c.Deletes + c.Updates + c.Moves
}

// Add returns the element-wise sum
func (c Counts) Add(other Counts) Counts {
	return Counts{
		Inserts: c.Inserts + other.Inserts,
		Deletes: c.Deletes + other.Deletes,
		Updates: c.Updates + other.Updates,
		Moves:   c.Moves + other.Moves,
	}
}

// Count tallies ops by kind
func Count(ops []Operation) Counts {
	var c Counts
	for _, op := range ops {
		switch op.Kind {
		case KindInsert:
			c.Inserts++
		case KindDelete:
			c.Deletes++
		case KindUpdate:
			c.Updates++
		case KindMove:
			c.Moves++
		}
	}
	return c
}

// Distance is the unweighted edit distance of a script: one per operation
func Distance(ops []Operation) int {
	return Count(ops).Total()
}
