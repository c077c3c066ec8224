package server

import (
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mlaroche/chatnet/pkg/model"
	"github.com/mlaroche/chatnet/pkg/protocol"
	"github.com/mlaroche/chatnet/pkg/rbac"
)

const (
	systemSender = "System"
	aiSenderName = "AI Assistant"
)

// commandResult is what a slash-command hands back to the chat handler:
// the response text, the display sender, and whether to suppress the
// room-wide echo of the response.
type commandResult struct {
	message string
	sender  string
	silent  bool
}

// systemResult is a direct-to-sender response (usage errors, permission
// denials). These never broadcast.
func systemResult(msg string) commandResult {
	return commandResult{message: msg, sender: systemSender, silent: true}
}

// aiResult is an AI-voiced response echoed into the room.
func aiResult(msg string) commandResult {
	return commandResult{message: msg, sender: aiSenderName}
}

type commandContext struct {
	srv   *Server
	sess  *Session
	actor rbac.Actor
	room  model.Room // snapshot taken before dispatch
	args  []string
}

type commandFunc func(ctx *commandContext) commandResult

type command struct {
	name        string
	description string
	adminOnly   bool // hidden from /help for non-moderators
	run         commandFunc
}

// processCommand parses a /-prefixed chat message and dispatches it. The
// command token is case-insensitive; the router does not pre-filter
// permissions, every privileged handler re-checks its own.
func (s *Server) processCommand(sess *Session, room model.Room, content string) commandResult {
	parts := strings.Fields(strings.TrimPrefix(content, "/"))
	if len(parts) == 0 {
		return systemResult("Unknown command. Type /help for available commands.")
	}
	name := strings.ToLower(parts[0])

	cmd, ok := s.cmds[name]
	if !ok {
		return systemResult(fmt.Sprintf("Unknown command: /%s. Type /help for available commands.", name))
	}
	s.metrics.CommandsRun.Add(1)

	return cmd.run(&commandContext{
		srv:   s,
		sess:  sess,
		actor: rbac.Actor{ID: sess.UserID, Username: sess.Username, Roles: sess.Roles},
		room:  room,
		args:  parts[1:],
	})
}

var pollArgRE = regexp.MustCompile(`"([^"]+)"`)

func builtinCommands() map[string]command {
	cmds := []command{
		{
			name:        "help",
			description: "Shows a list of available commands",
			run:         runHelp,
		},
		{
			name:        "ai",
			description: "Toggles the AI assistant in the current room (admin/host/owner only)",
			adminOnly:   true,
			run:         runAI,
		},
		{
			name:        "say",
			description: "Makes the AI say something (admin/host/owner only)",
			adminOnly:   true,
			run:         runSay,
		},
		{
			name:        "kick",
			description: "Kicks a user from the room (host/owner only)",
			adminOnly:   true,
			run:         runKick,
		},
		{
			name:        "ban",
			description: "Bans a user from the room (host/owner only)",
			adminOnly:   true,
			run:         runBan,
		},
		{
			name:        "mute",
			description: "Mutes a user in the room for a specified duration (host/owner only)",
			adminOnly:   true,
			run:         runMute,
		},
		{
			name:        "aiall",
			description: "Sends a message through all AI assistants in all rooms (admin only)",
			adminOnly:   true,
			run:         runAIAll,
		},
		{
			name:        "joke",
			description: "Makes the AI tell a joke",
			run:         runJoke,
		},
		{
			name:        "8ball",
			description: "Ask the magic 8-ball a question",
			run:         run8Ball,
		},
		{
			name:        "poll",
			description: "Create a poll in the room (host/owner only)",
			adminOnly:   true,
			run:         runPoll,
		},
	}

	table := make(map[string]command, len(cmds))
	for _, c := range cmds {
		table[c.name] = c
	}
	return table
}

func runHelp(ctx *commandContext) commandResult {
	moderator := rbac.CanModerate(ctx.actor, &ctx.room)

	names := make([]string, 0, len(ctx.srv.cmds))
	for name := range ctx.srv.cmds {
		names = append(names, name)
	}
	sort.Strings(names)

	var lines []string
	for _, name := range names {
		cmd := ctx.srv.cmds[name]
		if cmd.adminOnly && !moderator {
			continue
		}
		lines = append(lines, fmt.Sprintf("/%s - %s", cmd.name, cmd.description))
	}
	return commandResult{
		message: "Available commands:\n" + strings.Join(lines, "\n"),
		sender:  aiSenderName,
	}
}

func runAI(ctx *commandContext) commandResult {
	if msg := rbac.RequireModerator(ctx.actor, &ctx.room); msg != "" {
		return systemResult(msg)
	}

	enabled, err := ctx.srv.rooms.ToggleAI(ctx.room.ID)
	if err != nil {
		return systemResult("Room not found")
	}
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	return commandResult{
		message: fmt.Sprintf("AI assistant is now %s in this room", state),
		sender:  systemSender,
	}
}

// runSay broadcasts the message in the AI's voice and confirms silently
// to the invoker, so the room sees it exactly once.
func runSay(ctx *commandContext) commandResult {
	if len(ctx.args) == 0 {
		return systemResult("Usage: /say [message]")
	}
	if msg := rbac.RequireModerator(ctx.actor, &ctx.room); msg != "" {
		return systemResult(msg)
	}

	text := strings.Join(ctx.args, " ")
	ctx.srv.broadcastToRoom(ctx.room.ID, protocol.NewAIMessage(aiSenderName, text, time.Now()))
	return commandResult{message: text, sender: aiSenderName, silent: true}
}

func runKick(ctx *commandContext) commandResult {
	if len(ctx.args) == 0 {
		return systemResult("Usage: /kick [username] [reason]")
	}
	if msg := rbac.RequireModerator(ctx.actor, &ctx.room); msg != "" {
		return systemResult(msg)
	}
	reason := moderationReason(ctx.args[1:])
	return ctx.srv.kickUser(ctx.actor, ctx.room, ctx.args[0], reason)
}

func runBan(ctx *commandContext) commandResult {
	if len(ctx.args) == 0 {
		return systemResult("Usage: /ban [username] [reason]")
	}
	if msg := rbac.RequireModerator(ctx.actor, &ctx.room); msg != "" {
		return systemResult(msg)
	}
	reason := moderationReason(ctx.args[1:])
	return ctx.srv.banUser(ctx.actor, ctx.room, ctx.args[0], reason)
}

func runMute(ctx *commandContext) commandResult {
	if len(ctx.args) < 2 {
		return systemResult("Usage: /mute [username] [duration in minutes] [reason]")
	}
	if msg := rbac.RequireModerator(ctx.actor, &ctx.room); msg != "" {
		return systemResult(msg)
	}

	minutes, err := strconv.Atoi(ctx.args[1])
	if err != nil || minutes <= 0 {
		return systemResult("Duration must be a positive number of minutes")
	}
	reason := moderationReason(ctx.args[2:])
	return ctx.srv.muteUser(ctx.actor, ctx.room, ctx.args[0], minutes, reason)
}

func runAIAll(ctx *commandContext) commandResult {
	if !ctx.actor.Admin() {
		return systemResult("You do not have permission to use this command")
	}
	if len(ctx.args) == 0 {
		return systemResult("Usage: /aiall [message]")
	}

	text := strings.Join(ctx.args, " ")
	event := protocol.NewAIMessage(aiSenderName, text, time.Now())
	for _, room := range ctx.srv.rooms.List() {
		if room.Settings.AIEnabled {
			ctx.srv.broadcastToRoom(room.ID, event)
		}
	}
	return commandResult{
		message: "Message broadcast through all AI assistants in all active rooms",
		sender:  systemSender,
		silent:  true,
	}
}

var jokes = []string{
	"Why don't scientists trust atoms? Because they make up everything!",
	"I told my wife she was drawing her eyebrows too high. She looked surprised.",
	"Why did the scarecrow win an award? Because he was outstanding in his field!",
	"I'm reading a book about anti-gravity. It's impossible to put down!",
	"Did you hear about the mathematician who's afraid of negative numbers? He'll stop at nothing to avoid them.",
	"Why did the bicycle fall over? Because it was two-tired!",
	"What's the best thing about Switzerland? I don't know, but the flag is a big plus.",
	"How do you organize a space party? You planet!",
	"Why did the coffee file a police report? It got mugged.",
	"What do you call a fake noodle? An impasta!",
}

func runJoke(ctx *commandContext) commandResult {
	return aiResult(jokes[rand.Intn(len(jokes))])
}

var eightBallAnswers = []string{
	"It is certain.",
	"It is decidedly so.",
	"Without a doubt.",
	"Yes definitely.",
	"You may rely on it.",
	"As I see it, yes.",
	"Most likely.",
	"Outlook good.",
	"Yes.",
	"Signs point to yes.",
	"Reply hazy, try again.",
	"Ask again later.",
	"Better not tell you now.",
	"Cannot predict now.",
	"Concentrate and ask again.",
	"Don't count on it.",
	"My reply is no.",
	"My sources say no.",
	"Outlook not so good.",
	"Very doubtful.",
}

func run8Ball(ctx *commandContext) commandResult {
	if len(ctx.args) == 0 {
		return systemResult("Usage: /8ball [your question]")
	}
	question := strings.Join(ctx.args, " ")
	answer := eightBallAnswers[rand.Intn(len(eightBallAnswers))]
	return aiResult(fmt.Sprintf("**Q: %s**\n🎱 %s", question, answer))
}

// runPoll extracts the quoted question and options: the first "..." token
// is the question, the rest are options, at least two required.
func runPoll(ctx *commandContext) commandResult {
	if msg := rbac.RequireModerator(ctx.actor, &ctx.room); msg != "" {
		return systemResult(msg)
	}

	matches := pollArgRE.FindAllStringSubmatch(strings.Join(ctx.args, " "), -1)
	if len(matches) < 3 {
		return systemResult(`Usage: /poll "Question" "Option 1" "Option 2" ["Option 3" ...]`)
	}
	question := matches[0][1]
	options := make([]string, 0, len(matches)-1)
	for _, m := range matches[1:] {
		options = append(options, m[1])
	}

	if _, err := ctx.srv.createPoll(ctx.room.ID, question, options, ctx.actor.Username); err != nil {
		if errors.Is(err, model.ErrRoomNotFound) {
			return systemResult("Room not found")
		}
		return systemResult(err.Error())
	}
	return commandResult{
		message: fmt.Sprintf("Poll created: %q", question),
		sender:  systemSender,
	}
}

func moderationReason(args []string) string {
	reason := strings.Join(args, " ")
	if reason == "" {
		reason = "No reason provided"
	}
	return reason
}
