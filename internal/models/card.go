// internal/models/card.go
package models

const (
	CardRows       = 3
	CardColumns    = 9
	NumbersPerRow  = 5
	NumbersPerCard = CardRows * NumbersPerRow
	MaxNumber      = 90
)

// Cell is one slot of a card. Value 0 means the cell is empty.
type Cell struct {
	Value     int  `json:"value"`
	Extracted bool `json:"isExtracted"`
}

// Card (scheda) is a 3x9 grid of cells.
type Card [CardRows][CardColumns]Cell

// Numbers returns the non-empty values of the card in row-major order.
func (c Card) Numbers() []int {
	nums := make([]int, 0, NumbersPerCard)
	for r := range c {
		for col := range c[r] {
			if c[r][col].Value != 0 {
				nums = append(nums, c[r][col].Value)
			}
		}
	}
	return nums
}

// ColumnRange returns the inclusive number range allowed in column col.
func ColumnRange(col int) (lo, hi int) {
	switch col {
	case 0:
		return 1, 9
	case CardColumns - 1:
		return 80, MaxNumber
	default:
		return col * 10, col*10 + 9
	}
}
