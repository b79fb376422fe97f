package terminal

import (
	"errors"
	"fmt"
	"strings"
)

type CommandName string

const (
	CmdNone     CommandName = ""
	CmdSend     CommandName = "send"
	CmdHelp     CommandName = "help"
	CmdRegister CommandName = "register"
	CmdLogin    CommandName = "login"
	CmdRooms    CommandName = "rooms"
	CmdCreate   CommandName = "create"
	CmdJoin     CommandName = "join"
	CmdLeave    CommandName = "leave"
	CmdWhoami   CommandName = "whoami"
	CmdQuit     CommandName = "quit"
)

// Command is one parsed input line. Text holds the message for CmdSend and
// the free-form argument for CmdCreate and CmdJoin.
type Command struct {
	Name CommandName
	Args []string
	Text string
}

var ErrUnknownCommand = errors.New("unknown command")

const helpText = `Commands:
  /register <username> <password>
  /login <username> <password>
  /rooms                  refresh the chatroom list
  /create <name>          create a chatroom
  /join <id|name>         enter a chatroom
  /leave                  leave the current chatroom
  /whoami                 show the signed-in user
  /quit
Any other line is sent to the current chatroom. Start a line with // to send a leading slash.`

// ParseCommand parses one line of input. Lines not starting with "/" are
// messages; "//" escapes a literal leading slash.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return Command{}, nil
	}

	if strings.HasPrefix(line, "//") {
		return Command{Name: CmdSend, Text: line[1:]}, nil
	}
	if !strings.HasPrefix(line, "/") {
		return Command{Name: CmdSend, Text: line}, nil
	}

	head, rest, _ := strings.Cut(strings.TrimSpace(line[1:]), " ")
	rest = strings.TrimSpace(rest)
	name := CommandName(strings.ToLower(head))

	switch name {
	case CmdHelp, CmdRooms, CmdLeave, CmdWhoami, CmdQuit:
		return Command{Name: name}, nil
	case CmdRegister, CmdLogin:
		args := strings.Fields(rest)
		if len(args) != 2 {
			return Command{}, fmt.Errorf("usage: /%s <username> <password>", name)
		}
		return Command{Name: name, Args: args}, nil
	case CmdCreate:
		if rest == "" {
			return Command{}, errors.New("usage: /create <name>")
		}
		return Command{Name: name, Text: rest}, nil
	case CmdJoin:
		if rest == "" {
			return Command{}, errors.New("usage: /join <id|name>")
		}
		return Command{Name: name, Text: rest}, nil
	case "exit":
		return Command{Name: CmdQuit}, nil
	}

	return Command{}, fmt.Errorf("%w: /%s", ErrUnknownCommand, head)
}
