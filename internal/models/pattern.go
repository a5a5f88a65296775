// internal/models/pattern.go
package models

// Pattern is one of the winning conditions a player can declare.
type Pattern string

const (
	PatternAmbo     Pattern = "ambo"
	PatternTerna    Pattern = "terna"
	PatternQuaterna Pattern = "quaterna"
	PatternCinquina Pattern = "cinquina"
	PatternTombola  Pattern = "tombola"
)

// PatternOrder is the fixed order in which patterns must be declared.
var PatternOrder = []Pattern{
	PatternAmbo,
	PatternTerna,
	PatternQuaterna,
	PatternCinquina,
	PatternTombola,
}

// Valid reports whether p is one of the five known patterns.
func (p Pattern) Valid() bool {
	return p.index() >= 0
}

// Next returns the pattern that follows p, or nil after tombola or for an unknown pattern.
func (p Pattern) Next() *Pattern {
	i := p.index()
	if i < 0 || i == len(PatternOrder)-1 {
		return nil
	}
	next := PatternOrder[i+1]
	return &next
}

func (p Pattern) index() int {
	for i, o := range PatternOrder {
		if o == p {
			return i
		}
	}
	return -1
}
