// internal/game/card.go
package game

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/jason-s-yu/tombola/internal/models"
)

// ErrGenerationFailed is returned when the generator reaches a state where no
// row/column combination can take the next number. It indicates a generator
// defect; callers retry from scratch.
var ErrGenerationFailed = errors.New("card generation failed: inconsistent intermediate state")

// maxGenerateAttempts bounds NewCard's wholesale retries.
const maxGenerateAttempts = 32

// GenerateCard builds a card with 15 numbers, 5 per row, every column covered
// and every column ascending top-to-bottom.
func GenerateCard(r *rand.Rand) (models.Card, error) {
	var card models.Card

	// 1) one pool of candidate numbers per column
	pools := make([][]int, models.CardColumns)
	for col := range pools {
		lo, hi := models.ColumnRange(col)
		for n := lo; n <= hi; n++ {
			pools[col] = append(pools[col], n)
		}
	}

	var rowCounts [models.CardRows]int
	assign := func(col, row int) {
		idx := r.Intn(len(pools[col]))
		card[row][col] = models.Cell{Value: pools[col][idx]}
		pools[col] = append(pools[col][:idx], pools[col][idx+1:]...)
		rowCounts[row]++
	}
	openRows := func() []int {
		rows := make([]int, 0, models.CardRows)
		for row, n := range rowCounts {
			if n < models.NumbersPerRow {
				rows = append(rows, row)
			}
		}
		return rows
	}

	// 2) coverage pass: at least one number per column
	for col := 0; col < models.CardColumns; col++ {
		rows := openRows()
		if len(rows) == 0 {
			return models.Card{}, fmt.Errorf("%w: no open row for column %d", ErrGenerationFailed, col)
		}
		assign(col, rows[r.Intn(len(rows))])
	}

	// 3) fill pass until every row holds 5 numbers
	for placed := models.CardColumns; placed < models.NumbersPerCard; placed++ {
		rows := openRows()
		if len(rows) == 0 {
			return models.Card{}, fmt.Errorf("%w: rows full after %d numbers", ErrGenerationFailed, placed)
		}
		row := rows[r.Intn(len(rows))]

		// Each pool holds at least 9 numbers for at most 3 cells, so an empty
		// cell always has numbers left in its column.
		var cols []int
		for col := 0; col < models.CardColumns; col++ {
			if card[row][col].Value == 0 && len(pools[col]) > 0 {
				cols = append(cols, col)
			}
		}
		if len(cols) == 0 {
			return models.Card{}, fmt.Errorf("%w: no column available in row %d", ErrGenerationFailed, row)
		}
		assign(cols[r.Intn(len(cols))], row)
	}

	// 4) sort each column and lay the values back into its occupied rows
	for col := 0; col < models.CardColumns; col++ {
		var values []int
		for row := 0; row < models.CardRows; row++ {
			if v := card[row][col].Value; v != 0 {
				values = append(values, v)
			}
		}
		sort.Ints(values)
		i := 0
		for row := 0; row < models.CardRows; row++ {
			if card[row][col].Value != 0 {
				card[row][col].Value = values[i]
				i++
			}
		}
	}

	return card, nil
}

// NewCard generates a card, retrying wholesale on generation failure.
// It panics only if every attempt fails, which would be a generator bug.
func NewCard(r *rand.Rand) models.Card {
	var lastErr error
	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		card, err := GenerateCard(r)
		if err == nil {
			return card
		}
		lastErr = err
	}
	panic(fmt.Sprintf("game: %d card generation attempts failed: %v", maxGenerateAttempts, lastErr))
}

// MarkValidation is the result of ValidateMarks.
type MarkValidation struct {
	Valid          bool   `json:"valid"`
	InvalidNumbers []int  `json:"invalidNumbers,omitempty"`
	Message        string `json:"message"`
}

// ValidateMarks checks that every cell marked as extracted holds a drawn number.
func ValidateMarks(card models.Card, drawn []int) MarkValidation {
	set := drawnSet(drawn)
	var invalid []int
	for row := range card {
		for _, cell := range card[row] {
			if cell.Value != 0 && cell.Extracted && !set[cell.Value] {
				invalid = append(invalid, cell.Value)
			}
		}
	}
	if len(invalid) > 0 {
		parts := make([]string, len(invalid))
		for i, n := range invalid {
			parts[i] = fmt.Sprint(n)
		}
		return MarkValidation{
			Valid:          false,
			InvalidNumbers: invalid,
			Message:        "these numbers have not been drawn: " + strings.Join(parts, ", "),
		}
	}
	return MarkValidation{Valid: true, Message: "card is valid"}
}

// PatternCheck is the result of CheckPattern.
type PatternCheck struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

// CheckPattern reports whether card satisfies pattern given the drawn numbers.
// Only cells that are both marked and drawn count.
func CheckPattern(pattern models.Pattern, card models.Card, drawn []int) PatternCheck {
	set := drawnSet(drawn)
	maxRow, total := 0, 0
	for row := range card {
		n := 0
		for _, cell := range card[row] {
			if cell.Value != 0 && cell.Extracted && set[cell.Value] {
				n++
			}
		}
		total += n
		if n > maxRow {
			maxRow = n
		}
	}

	need := map[models.Pattern]int{
		models.PatternAmbo:     2,
		models.PatternTerna:    3,
		models.PatternQuaterna: 4,
		models.PatternCinquina: 5,
	}
	switch pattern {
	case models.PatternAmbo, models.PatternTerna, models.PatternQuaterna, models.PatternCinquina:
		if maxRow < need[pattern] {
			return PatternCheck{Message: fmt.Sprintf("%s needs %d drawn numbers in one row, best row has %d", pattern, need[pattern], maxRow)}
		}
	case models.PatternTombola:
		if total != models.NumbersPerCard {
			return PatternCheck{Message: fmt.Sprintf("only %d/%d numbers drawn, %d missing", total, models.NumbersPerCard, models.NumbersPerCard-total)}
		}
	default:
		return PatternCheck{Message: fmt.Sprintf("unknown pattern %q", pattern)}
	}
	return PatternCheck{Valid: true, Message: strings.ToUpper(string(pattern)) + "!"}
}

// MarkDrawn returns a copy of card with exactly the drawn numbers marked.
func MarkDrawn(card models.Card, drawn []int) models.Card {
	set := drawnSet(drawn)
	for row := range card {
		for col := range card[row] {
			card[row][col].Extracted = card[row][col].Value != 0 && set[card[row][col].Value]
		}
	}
	return card
}

func drawnSet(drawn []int) map[int]bool {
	set := make(map[int]bool, len(drawn))
	for _, n := range drawn {
		set[n] = true
	}
	return set
}
