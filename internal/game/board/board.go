// Package board provides the 7x3 battle grid geometry: per-side slot numbering,
// slot-to-cell mapping and distance helpers.
package board

import "fmt"

// Side identifies which team a unit or slot belongs to.
type Side string

const (
	Ally  Side = "ally"
	Enemy Side = "enemy"
)

// Opponent returns the opposing side.
//
// Postcondition: Opponent(Opponent(s)) == s for Ally and Enemy.
func (s Side) Opponent() Side {
	if s == Ally {
		return Enemy
	}
	return Ally
}

// Valid reports whether s is Ally or Enemy.
func (s Side) Valid() bool { return s == Ally || s == Enemy }

// Grid dimensions and per-side slot layout.
const (
	Cols        = 7
	Rows        = 3
	SideCols    = 3
	SlotCount   = SideCols * Rows
	LeaderSlot  = 8
	MinSlot     = 1
	MaxSlot     = SlotCount
	neutralCols = Cols - 2*SideCols
)

// Cell is a grid coordinate. CX runs 0..Cols-1 from the ally back line to the
// enemy back line; CY runs 0..Rows-1.
type Cell struct {
	CX int
	CY int
}

// String returns "(cx,cy)".
func (c Cell) String() string { return fmt.Sprintf("(%d,%d)", c.CX, c.CY) }

// Manhattan returns |a.CX-b.CX| + |a.CY-b.CY|.
//
// Postcondition: Returns >= 0.
func Manhattan(a, b Cell) int {
	return abs(a.CX-b.CX) + abs(a.CY-b.CY)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// ValidSlot reports whether slot is in [MinSlot, MaxSlot].
func ValidSlot(slot int) bool { return slot >= MinSlot && slot <= MaxSlot }

// SlotToCell maps a side-relative slot to its grid cell. Slots are numbered
// column-major from the front column: 1..3 are the front column rows 0..2,
// 4..6 the middle column and 7..9 the back column.
//
// Precondition: ValidSlot(slot); side.Valid().
// Postcondition: CellToSlot(side, SlotToCell(side, slot)) == slot.
func SlotToCell(side Side, slot int) Cell {
	col := (slot - 1) / Rows
	row := (slot - 1) % Rows
	if side == Ally {
		return Cell{CX: SideCols - 1 - col, CY: row}
	}
	return Cell{CX: SideCols + neutralCols + col, CY: row}
}

// CellToSlot maps a grid cell back to its side-relative slot.
//
// Postcondition: Returns 0 when the cell is outside side's deployment columns.
func CellToSlot(side Side, c Cell) int {
	if c.CY < 0 || c.CY >= Rows {
		return 0
	}
	var col int
	if side == Ally {
		col = SideCols - 1 - c.CX
	} else {
		col = c.CX - SideCols - neutralCols
	}
	if col < 0 || col >= SideCols {
		return 0
	}
	return col*Rows + c.CY + 1
}

// Column returns the 0-based column index (0 = front) of slot.
func Column(slot int) int { return (slot - 1) / Rows }

// Row returns the 0-based row index of slot.
func Row(slot int) int { return (slot - 1) % Rows }

// SlotAt returns the slot for a column/row pair, or 0 when out of range.
func SlotAt(col, row int) int {
	if col < 0 || col >= SideCols || row < 0 || row >= Rows {
		return 0
	}
	return col*Rows + row + 1
}

// PrimarySlotForRow returns the front-column slot facing an attacker standing
// on row cy: clamp(cy+1, 1, 3).
func PrimarySlotForRow(cy int) int {
	s := cy + 1
	if s < 1 {
		return 1
	}
	if s > Rows {
		return Rows
	}
	return s
}

// FrontlineDistance returns the Manhattan distance from c to the nearest cell of
// the opposing side's front column.
func FrontlineDistance(side Side, c Cell) int {
	best := -1
	for row := 0; row < Rows; row++ {
		d := Manhattan(c, SlotToCell(side.Opponent(), SlotAt(0, row)))
		if best < 0 || d < best {
			best = d
		}
	}
	return best
}
