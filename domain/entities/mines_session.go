package entities

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MinesSessionStatus represents the lifecycle state of a mines session
type MinesSessionStatus string

const (
	MinesSessionStatusActive    MinesSessionStatus = "active"
	MinesSessionStatusLost      MinesSessionStatus = "lost"
	MinesSessionStatusCashedOut MinesSessionStatus = "cashed_out"
)

// MinesSession represents a single mines wager round. The stake is
// debited when the session is created; the hazard layout stays hidden
// until the session reaches a terminal state.
type MinesSession struct {
	ID            uuid.UUID          `db:"id"`
	AccountKey    string             `db:"account_key"`
	Stake         int64              `db:"stake"`
	BoardSize     int32              `db:"board_size"`
	HazardCount   int32              `db:"hazard_count"`
	HazardCells   []int32            `db:"hazard_cells"`
	RevealedCells []int32            `db:"revealed_cells"`
	Multiplier    decimal.Decimal    `db:"multiplier"` // 1.0 until the first safe reveal
	Status        MinesSessionStatus `db:"status"`
	CreatedAt     time.Time          `db:"created_at"`
	ResolvedAt    *time.Time         `db:"resolved_at"`
}

// GenerateHazardCells picks hazardCount distinct cells in
// [0, boardSize) using crypto/rand.
func GenerateHazardCells(boardSize, hazardCount int32) ([]int32, error) {
	pool := make([]int32, boardSize)
	for i := range pool {
		pool[i] = int32(i)
	}
	for i := int32(0); i < hazardCount; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(boardSize-i)))
		if err != nil {
			return nil, fmt.Errorf("failed to generate hazard cell: %w", err)
		}
		j := i + int32(n.Int64())
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:hazardCount], nil
}

// IsActive returns true if the session can still be played
func (s *MinesSession) IsActive() bool {
	return s.Status == MinesSessionStatusActive
}

// IsTerminal returns true if the session has been resolved
func (s *MinesSession) IsTerminal() bool {
	return s.Status == MinesSessionStatusLost || s.Status == MinesSessionStatusCashedOut
}

// InBounds checks that a cell index lies on the board
func (s *MinesSession) InBounds(cell int32) bool {
	return cell >= 0 && cell < s.BoardSize
}

// IsHazard checks whether the given cell is one of the hazards
func (s *MinesSession) IsHazard(cell int32) bool {
	for _, h := range s.HazardCells {
		if h == cell {
			return true
		}
	}
	return false
}

// HasRevealed checks whether the given cell was already revealed
func (s *MinesSession) HasRevealed(cell int32) bool {
	for _, r := range s.RevealedCells {
		if r == cell {
			return true
		}
	}
	return false
}

// SafeCellCount returns the number of non-hazard cells on the board
func (s *MinesSession) SafeCellCount() int32 {
	return s.BoardSize - s.HazardCount
}

// SafeRemaining returns how many safe cells are still hidden
func (s *MinesSession) SafeRemaining() int32 {
	return s.SafeCellCount() - int32(len(s.RevealedCells))
}

// ComputeMultiplier derives the fair-odds multiplier for the current
// number of safe reveals, applies the house edge, clamps to
// [minMultiplier, maxMultiplier] and rounds to 4 decimal places.
//
// The product is recomputed from scratch on every call so repeated
// reveals never accumulate rounding drift:
//
//	raw = prod_{i=1..k} (board - i + 1) / (safe - i + 1)
func (s *MinesSession) ComputeMultiplier(houseEdge, minMultiplier, maxMultiplier decimal.Decimal) decimal.Decimal {
	reveals := int32(len(s.RevealedCells))
	if reveals == 0 {
		return decimal.NewFromInt(1)
	}
	safeCells := s.SafeCellCount()
	raw := decimal.NewFromInt(1)
	for i := int32(1); i <= reveals; i++ {
		num := decimal.NewFromInt32(s.BoardSize - i + 1)
		den := decimal.NewFromInt32(safeCells - i + 1)
		raw = raw.Mul(num).Div(den)
	}
	m := raw.Mul(decimal.NewFromInt(1).Sub(houseEdge))
	if m.LessThan(minMultiplier) {
		m = minMultiplier
	}
	if m.GreaterThan(maxMultiplier) {
		m = maxMultiplier
	}
	return m.Round(4)
}

// Payout returns the gold credited on cash-out: stake times the stored
// multiplier, rounded half up to the nearest whole unit.
func (s *MinesSession) Payout() int64 {
	return decimal.NewFromInt(s.Stake).Mul(s.Multiplier).Round(0).IntPart()
}

// MarkLost transitions the session to the lost state
func (s *MinesSession) MarkLost(now time.Time) {
	s.Status = MinesSessionStatusLost
	t := now
	s.ResolvedAt = &t
}

// MarkCashedOut transitions the session to the cashed-out state
func (s *MinesSession) MarkCashedOut(now time.Time) {
	s.Status = MinesSessionStatusCashedOut
	t := now
	s.ResolvedAt = &t
}

// DisclosedHazards returns the hazard layout once the session is
// terminal and nil while it is active.
func (s *MinesSession) DisclosedHazards() []int32 {
	if !s.IsTerminal() {
		return nil
	}
	return s.HazardCells
}

// RevealResult represents the outcome of revealing a cell (returned to the caller)
type RevealResult struct {
	Session       *MinesSession
	Cell          int32
	Hit           bool
	Multiplier    decimal.Decimal
	SafeRemaining int32
	HazardCells   []int32 // nil while the session is active
}

// CashOutResult represents the outcome of cashing out a session
type CashOutResult struct {
	Session        *MinesSession
	Payout         int64
	NewGoldBalance int64
}
