// Package terminal renders a chat session as plain lines of text and reads
// commands from a line oriented input.
package terminal

import (
	"fmt"
	"io"
	"sync"
	"time"

	"chat-app/internal/dto"
	"chat-app/internal/session"
)

const timeLayout = "15:04:05"

// Surface writes session output to a terminal. It is safe for concurrent use.
type Surface struct {
	mu  sync.Mutex
	out io.Writer
	loc *time.Location
}

func NewSurface(out io.Writer, loc *time.Location) *Surface {
	if loc == nil {
		loc = time.Local
	}
	return &Surface{out: out, loc: loc}
}

func (s *Surface) Notify(n session.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// The cause stays in the debug log; users only see the message.
	if n.Level == session.LevelError {
		fmt.Fprintf(s.out, "! %s\n", n.Message)
		return
	}
	fmt.Fprintf(s.out, "* %s\n", n.Message)
}

func (s *Surface) ShowRooms(rooms []dto.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(rooms) == 0 {
		fmt.Fprintln(s.out, "No chatrooms yet. Create one with /create <name>.")
		return
	}
	fmt.Fprintln(s.out, "Chatrooms:")
	for _, room := range rooms {
		fmt.Fprintf(s.out, "  [%d] %s\n", room.ID, room.Name)
	}
}

func (s *Surface) ShowRoom(room dto.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := room.Name
	if name == "" {
		name = fmt.Sprintf("room %d", room.ID)
	}
	fmt.Fprintf(s.out, "=== %s (#%d) ===\n", name, room.ID)
}

func (s *Surface) AppendMessages(msgs ...dto.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range msgs {
		stamp := m.Timestamp.In(s.loc).Format(timeLayout)
		if author := m.AuthorRef(); author != "" {
			fmt.Fprintf(s.out, "(%s) %s: %s\n", stamp, author, m.Content)
			continue
		}
		fmt.Fprintf(s.out, "(%s) %s\n", stamp, m.Content)
	}
}

// Printf writes a free-form line that is not tied to a session event.
func (s *Surface) Printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, format+"\n", args...)
}
