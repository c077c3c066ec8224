package server

import (
	"errors"
	"log/slog"

	"github.com/mlaroche/chatnet/pkg/model"
	"github.com/mlaroche/chatnet/pkg/protocol"
)

// createPoll adds a poll to the room and announces the question and
// options (never the vote state) to its members.
func (s *Server) createPoll(roomID, question string, options []string, createdBy string) (model.Poll, error) {
	poll, err := s.rooms.CreatePoll(roomID, question, options, createdBy)
	if err != nil {
		return model.Poll{}, err
	}
	s.metrics.PollsCreated.Add(1)
	slog.Info("poll created", "room", roomID, "poll", poll.ID, "by", createdBy)

	s.broadcastToRoom(roomID, protocol.NewPollCreated(protocol.PollInfo{
		ID:        poll.ID,
		Question:  poll.Question,
		Options:   poll.Options,
		CreatedBy: poll.CreatedBy,
	}))
	return poll, nil
}

// handleVotePoll records a vote, broadcasts the whole updated tally to
// the room, and confirms the vote to the voter. Clients replace their
// display state wholesale on each poll_updated.
func (s *Server) handleVotePoll(sess *Session, env *protocol.Envelope) {
	if env.RoomID == "" || env.PollID == "" || env.OptionIndex == nil {
		s.sendError(sess, "Invalid vote format")
		return
	}

	room, err := s.rooms.Snapshot(env.RoomID)
	if err != nil {
		s.sendError(sess, "Room not found")
		return
	}
	if !room.IsMember(sess.UserID) {
		s.sendError(sess, "You are not a member of this room")
		return
	}

	poll, err := s.rooms.Vote(env.RoomID, env.PollID, sess.UserID, *env.OptionIndex)
	switch {
	case errors.Is(err, model.ErrPollNotFound):
		s.sendError(sess, "Poll not found")
		return
	case errors.Is(err, model.ErrAlreadyVoted):
		s.sendError(sess, "You have already voted in this poll")
		return
	case errors.Is(err, model.ErrInvalidOption):
		s.sendError(sess, "Invalid option selected")
		return
	case err != nil:
		s.sendError(sess, "Room not found")
		return
	}
	s.metrics.VotesCast.Add(1)

	s.broadcastToRoom(env.RoomID, protocol.NewPollUpdated(poll.ID, poll.Tally()))
	_ = sess.Send(protocol.NewVoteRecorded(poll.ID, *env.OptionIndex))
}
