package domain

import "time"

// TradeStatus tracks the escrow lifecycle. Once a trade leaves pending it is
// terminal and immutable.
type TradeStatus string

const (
	TradeStatusPending   TradeStatus = "pending"
	TradeStatusComplete  TradeStatus = "complete"
	TradeStatusCancelled TradeStatus = "cancelled"
)

// DefaultTradeWindow is how long a proposed trade stays open before the
// sweeper cancels it.
const DefaultTradeWindow = 5 * time.Minute

// Trade is a proposed two-party exchange of cards and gold. Nothing moves at
// proposal time; the swap happens exactly once, at finalization, under the
// participant-pair lock.
type Trade struct {
	ID           string
	ParticipantA string
	ParticipantB string
	CardsA       []string // card ids offered by participant A
	CardsB       []string // card ids offered by participant B
	GoldA        int64    // gold offered by participant A
	GoldB        int64    // gold offered by participant B
	Status       TradeStatus
	CancelReason string
	CreatedAt    time.Time
	ExpiresAt    time.Time
	ClosedAt     *time.Time
}

// HasParticipant reports whether userID is one of the two trade parties.
func (t Trade) HasParticipant(userID string) bool {
	return userID == t.ParticipantA || userID == t.ParticipantB
}

// Counterpart returns the other participant, or "" if userID is not a party.
func (t Trade) Counterpart(userID string) string {
	switch userID {
	case t.ParticipantA:
		return t.ParticipantB
	case t.ParticipantB:
		return t.ParticipantA
	}
	return ""
}

// Expired reports whether the trade's escrow window has passed at now.
func (t Trade) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// Empty reports whether neither side offers anything.
func (t Trade) Empty() bool {
	return len(t.CardsA) == 0 && len(t.CardsB) == 0 && t.GoldA == 0 && t.GoldB == 0
}
