package ledger

// MinSlots is the smallest team that can be created.
const MinSlots = 2

// DeriveStatus computes a team's status from post-mutation state.
// Cancelled is terminal.
func DeriveStatus(current Status, filled, total int) Status {
	if current == StatusCancelled {
		return StatusCancelled
	}
	if filled >= total {
		return StatusFull
	}
	return StatusOpen
}
