package model

import (
	"errors"
	"time"
)

const MinPollOptions = 2

var ErrPollTooFewOptions = errors.New("poll needs at least two options")
var ErrPollQuestionEmpty = errors.New("poll question must not be empty")

// Poll is a room-scoped single-question, single-vote-per-user tally.
// Votes is kept parallel to Options; Voters is append-only.
type Poll struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Options   []string  `json:"options"`
	Votes     []int     `json:"votes"`
	Voters    []string  `json:"voters"`
	CreatedBy string    `json:"createdBy"` // username of the creator
	CreatedAt time.Time `json:"createdAt"`
}

// NewPoll builds a poll with zero-initialized votes.
func NewPoll(id, question string, options []string, createdBy string, now time.Time) (*Poll, error) {
	if question == "" {
		return nil, ErrPollQuestionEmpty
	}
	if len(options) < MinPollOptions {
		return nil, ErrPollTooFewOptions
	}
	return &Poll{
		ID:        id,
		Question:  question,
		Options:   append([]string(nil), options...),
		Votes:     make([]int, len(options)),
		Voters:    []string{},
		CreatedBy: createdBy,
		CreatedAt: now,
	}, nil
}

// HasVoted reports whether the user id already appears in Voters.
func (p *Poll) HasVoted(userID string) bool {
	return contains(p.Voters, userID)
}

// Vote records a single vote. The duplicate check runs before the bounds
// check so a repeat voter never mutates the tally, whatever option index
// they send.
func (p *Poll) Vote(userID string, optionIndex int) error {
	if p.HasVoted(userID) {
		return ErrAlreadyVoted
	}
	if optionIndex < 0 || optionIndex >= len(p.Options) {
		return ErrInvalidOption
	}
	p.Votes[optionIndex]++
	p.Voters = append(p.Voters, userID)
	return nil
}

// Tally returns a copy of the current vote counts.
func (p *Poll) Tally() []int {
	return append([]int(nil), p.Votes...)
}

// Clone returns a deep copy of the poll.
func (p *Poll) Clone() Poll {
	out := *p
	out.Options = append([]string(nil), p.Options...)
	out.Votes = append([]int(nil), p.Votes...)
	out.Voters = append([]string(nil), p.Voters...)
	return out
}
