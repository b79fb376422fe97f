package terminal

import (
	"bufio"
	"context"
	"io"
	"strconv"

	"chat-app/internal/dto"
	"chat-app/internal/jwt"
	"chat-app/internal/live"
	"chat-app/internal/session"

	"github.com/rs/zerolog/log"
)

// Chat is the part of *session.Session the REPL drives.
type Chat interface {
	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) error
	CreateRoom(ctx context.Context, name string) error
	ListRooms(ctx context.Context) ([]dto.Room, error)
	JoinRoom(ctx context.Context, roomID int64, roomName string) error
	SendMessage(ctx context.Context, content string) error
	LeaveRoom()
	LookupRoom(ref string) (dto.Room, bool)
	Token() string
	Identity() (jwt.Claims, bool)
	CurrentRoom() (dto.Room, bool)
	LiveState() live.State
}

var _ Chat = (*session.Session)(nil)

type REPL struct {
	chat    Chat
	surface *Surface
	in      io.Reader
}

func NewREPL(chat Chat, surface *Surface, in io.Reader) *REPL {
	return &REPL{chat: chat, surface: surface, in: in}
}

// Run reads commands until /quit, end of input, or ctx is cancelled.
func (r *REPL) Run(ctx context.Context) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-stop:
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	r.surface.Printf("Type /help for commands.")

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if quit := r.Execute(ctx, line); quit {
				return nil
			}
		}
	}
}

// Execute runs one input line and reports whether the REPL should stop.
// Failures are already shown by the session; they are only logged here.
func (r *REPL) Execute(ctx context.Context, line string) bool {
	cmd, err := ParseCommand(line)
	if err != nil {
		r.surface.Notify(session.Notification{Level: session.LevelError, Message: err.Error()})
		return false
	}

	switch cmd.Name {
	case CmdNone:
	case CmdQuit:
		return true
	case CmdHelp:
		r.surface.Printf("%s", helpText)
	case CmdRegister:
		err = r.chat.Register(ctx, cmd.Args[0], cmd.Args[1])
	case CmdLogin:
		err = r.chat.Login(ctx, cmd.Args[0], cmd.Args[1])
	case CmdRooms:
		_, err = r.chat.ListRooms(ctx)
	case CmdCreate:
		err = r.chat.CreateRoom(ctx, cmd.Text)
	case CmdJoin:
		err = r.join(ctx, cmd.Text)
	case CmdLeave:
		r.leave()
	case CmdWhoami:
		r.whoami()
	case CmdSend:
		err = r.chat.SendMessage(ctx, cmd.Text)
	}

	if err != nil {
		log.Debug().Err(err).Str("command", string(cmd.Name)).Msg("command failed")
	}
	return false
}

func (r *REPL) join(ctx context.Context, ref string) error {
	if room, ok := r.chat.LookupRoom(ref); ok {
		return r.chat.JoinRoom(ctx, room.ID, room.Name)
	}

	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		r.surface.Notify(session.Notification{
			Level:   session.LevelError,
			Message: "Unknown chatroom " + strconv.Quote(ref) + ", try /rooms.",
		})
		return nil
	}
	return r.chat.JoinRoom(ctx, id, "")
}

func (r *REPL) leave() {
	room, ok := r.chat.CurrentRoom()
	if !ok {
		r.surface.Notify(session.Notification{Level: session.LevelInfo, Message: "Not in a chatroom."})
		return
	}
	r.chat.LeaveRoom()
	r.surface.Notify(session.Notification{Level: session.LevelInfo, Message: "Left " + room.Name + "."})
}

func (r *REPL) whoami() {
	if r.chat.Token() == "" {
		r.surface.Printf("Not logged in.")
		return
	}

	who := "Logged in"
	if claims, ok := r.chat.Identity(); ok {
		who = "Logged in as " + claims.Username + " (id " + strconv.FormatInt(claims.UserID, 10) + ")"
	}
	if room, ok := r.chat.CurrentRoom(); ok {
		r.surface.Printf("%s, in %s, live %s.", who, room.Name, r.chat.LiveState())
		return
	}
	r.surface.Printf("%s.", who)
}
