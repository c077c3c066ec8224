package server

import (
	"math/rand"
	"time"
)

// Responder decides whether the room's assistant chimes in after a chat
// message. Implementations are cosmetic flavor, not correctness surface,
// and are swappable through Dependencies.
type Responder interface {
	// React is called after each chat message in an AI-enabled room.
	// When ok is true the reply is delivered to the room after delay.
	React(roomID string) (reply string, delay time.Duration, ok bool)
}

var defaultReplies = []string{
	"That's an interesting point!",
	"I see what you mean.",
	"Thanks for sharing that.",
	"I'm following the conversation with interest.",
	"That's worth thinking about further.",
	"Great discussion everyone!",
}

// CannedResponder replies with a random canned line at a fixed
// probability, after a randomized delay.
type CannedResponder struct {
	Chance   float64       // probability of replying, 0..1
	MinDelay time.Duration // lower bound of the reply delay
	MaxDelay time.Duration // upper bound of the reply delay
	Replies  []string
}

// NewCannedResponder returns a responder with the stock behavior: 10%
// reply chance, 2-5 second delay.
func NewCannedResponder() *CannedResponder {
	return &CannedResponder{
		Chance:   0.1,
		MinDelay: 2 * time.Second,
		MaxDelay: 5 * time.Second,
		Replies:  defaultReplies,
	}
}

func (c *CannedResponder) React(string) (string, time.Duration, bool) {
	if len(c.Replies) == 0 || rand.Float64() >= c.Chance {
		return "", 0, false
	}
	delay := c.MinDelay
	if span := c.MaxDelay - c.MinDelay; span > 0 {
		delay += time.Duration(rand.Int63n(int64(span)))
	}
	return c.Replies[rand.Intn(len(c.Replies))], delay, true
}
