package game

import (
	"math/rand"
	"testing"

	"github.com/jason-s-yu/tombola/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedCard is a hand-built legal card used by the validator tests.
//
//	row 0: 1 . 21 . 41 . 61 . 81
//	row 1: . 12 . 33 . 54 . 77 85
//	row 2: 5 . 28 . 49 . 66 79 .
func fixedCard() models.Card {
	var c models.Card
	set := func(row, col, v int) { c[row][col] = models.Cell{Value: v} }
	set(0, 0, 1)
	set(0, 2, 21)
	set(0, 4, 41)
	set(0, 6, 61)
	set(0, 8, 81)
	set(1, 1, 12)
	set(1, 3, 33)
	set(1, 5, 54)
	set(1, 7, 77)
	set(1, 8, 85)
	set(2, 0, 5)
	set(2, 2, 28)
	set(2, 4, 49)
	set(2, 6, 66)
	set(2, 7, 79)
	return c
}

func mark(c models.Card, nums ...int) models.Card {
	want := map[int]bool{}
	for _, n := range nums {
		want[n] = true
	}
	for r := range c {
		for col := range c[r] {
			if want[c[r][col].Value] {
				c[r][col].Extracted = true
			}
		}
	}
	return c
}

// TestGenerateCardInvariants checks the structural invariants on many cards.
func TestGenerateCardInvariants(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 2000; i++ {
		card, err := GenerateCard(r)
		require.NoError(t, err)

		total := 0
		seen := map[int]bool{}
		for row := 0; row < models.CardRows; row++ {
			perRow := 0
			for col := 0; col < models.CardColumns; col++ {
				v := card[row][col].Value
				if v == 0 {
					continue
				}
				perRow++
				lo, hi := models.ColumnRange(col)
				require.GreaterOrEqual(t, v, lo, "card %d: %d out of column %d", i, v, col)
				require.LessOrEqual(t, v, hi, "card %d: %d out of column %d", i, v, col)
				require.False(t, seen[v], "card %d: duplicate %d", i, v)
				seen[v] = true
				assert.False(t, card[row][col].Extracted)
			}
			require.Equal(t, models.NumbersPerRow, perRow, "card %d row %d", i, row)
			total += perRow
		}
		require.Equal(t, models.NumbersPerCard, total)

		for col := 0; col < models.CardColumns; col++ {
			prev, filled := 0, 0
			for row := 0; row < models.CardRows; row++ {
				v := card[row][col].Value
				if v == 0 {
					continue
				}
				filled++
				require.Greater(t, v, prev, "card %d column %d not ascending", i, col)
				prev = v
			}
			require.GreaterOrEqual(t, filled, 1, "card %d column %d empty", i, col)
		}
	}
}

func TestNewCardNumbers(t *testing.T) {
	card := NewCard(rand.New(rand.NewSource(7)))
	assert.Len(t, card.Numbers(), models.NumbersPerCard)
}

func TestValidateMarks(t *testing.T) {
	card := mark(fixedCard(), 1, 21, 12)

	res := ValidateMarks(card, []int{1, 21, 12, 90})
	assert.True(t, res.Valid)
	assert.Empty(t, res.InvalidNumbers)

	res = ValidateMarks(card, []int{1, 90})
	assert.False(t, res.Valid)
	assert.Equal(t, []int{21, 12}, res.InvalidNumbers)
	assert.Contains(t, res.Message, "21, 12")
}

func TestValidateMarksIgnoresUnmarked(t *testing.T) {
	res := ValidateMarks(fixedCard(), nil)
	assert.True(t, res.Valid)
}

func TestCheckPatternRows(t *testing.T) {
	drawn := []int{1, 21, 41, 61, 81, 12, 33}

	tests := []struct {
		name    string
		pattern models.Pattern
		marks   []int
		want    bool
	}{
		{"ambo in one row", models.PatternAmbo, []int{1, 21}, true},
		{"ambo split across rows", models.PatternAmbo, []int{1, 12}, false},
		{"terna", models.PatternTerna, []int{1, 21, 41}, true},
		{"terna short", models.PatternTerna, []int{1, 21, 12, 33}, false},
		{"quaterna", models.PatternQuaterna, []int{1, 21, 41, 61}, true},
		{"cinquina", models.PatternCinquina, []int{1, 21, 41, 61, 81}, true},
		{"cinquina short", models.PatternCinquina, []int{1, 21, 41, 61}, false},
		{"marked but not drawn", models.PatternAmbo, []int{5, 28}, false},
		{"unknown pattern", models.Pattern("bingo"), []int{1, 21, 41, 61, 81}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := CheckPattern(tt.pattern, mark(fixedCard(), tt.marks...), drawn)
			assert.Equal(t, tt.want, res.Valid, res.Message)
		})
	}
}

func TestCheckPatternTombola(t *testing.T) {
	card := fixedCard()
	all := card.Numbers()

	res := CheckPattern(models.PatternTombola, mark(card, all...), all)
	assert.True(t, res.Valid)

	res = CheckPattern(models.PatternTombola, mark(card, all...), all[:14])
	assert.False(t, res.Valid)
	assert.Contains(t, res.Message, "14/15")
}

func TestMarkDrawn(t *testing.T) {
	card := mark(fixedCard(), 85)
	marked := MarkDrawn(card, []int{1, 21, 90})

	assert.True(t, marked[0][0].Extracted)
	assert.True(t, marked[0][2].Extracted)
	assert.False(t, marked[1][8].Extracted, "stale mark cleared")
	assert.True(t, card[1][8].Extracted, "input left untouched")
	assert.True(t, CheckPattern(models.PatternAmbo, marked, []int{1, 21, 90}).Valid)
}
