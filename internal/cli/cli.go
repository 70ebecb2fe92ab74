// Package cli parses rehearse's command line.
package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type Command string

const (
	CommandRecord   Command = "record"
	CommandToggle   Command = "toggle"
	CommandStop     Command = "stop"
	CommandStatus   Command = "status"
	CommandHide     Command = "hide"
	CommandQuestion Command = "question"
	CommandAnalyze  Command = "analyze"
	CommandHistory  Command = "history"
	CommandDevices  Command = "devices"
	CommandDoctor   Command = "doctor"
	CommandMCP      Command = "mcp"
	CommandVersion  Command = "version"
	CommandHelp     Command = "help"
)

// argBounds is the [min, max] positional argument count per command.
var argBounds = map[Command][2]int{
	CommandRecord:   {0, 0},
	CommandToggle:   {0, 0},
	CommandStop:     {0, 0},
	CommandStatus:   {0, 0},
	CommandHide:     {0, 0},
	CommandQuestion: {0, 0},
	CommandAnalyze:  {1, 1},
	CommandHistory:  {0, 1},
	CommandDevices:  {0, 0},
	CommandDoctor:   {0, 0},
	CommandMCP:      {0, 0},
	CommandVersion:  {0, 0},
	CommandHelp:     {0, 0},
}

type Parsed struct {
	Command    Command
	Args       []string
	ConfigPath string
	ShowHelp   bool
}

// HistoryLimit returns the optional N of `history [N]`, or 0 when omitted.
func (p Parsed) HistoryLimit() int {
	if p.Command != CommandHistory || len(p.Args) == 0 {
		return 0
	}
	n, _ := strconv.Atoi(p.Args[0])
	return n
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandRecord}
	seenCommand := false

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if seenCommand && !strings.HasPrefix(arg, "-") {
			parsed.Args = append(parsed.Args, arg)
			continue
		}

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--config":
			if seenCommand {
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", parsed.Command)
			}
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			if _, ok := argBounds[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
			seenCommand = true
		}
	}

	if err := validateArgs(parsed); err != nil {
		return Parsed{}, err
	}
	return parsed, nil
}

func validateArgs(parsed Parsed) error {
	bounds := argBounds[parsed.Command]
	count := len(parsed.Args)
	switch {
	case count > bounds[1] && bounds[1] == 0:
		return fmt.Errorf("unexpected arguments after command %q", parsed.Command)
	case count > bounds[1]:
		return fmt.Errorf("%s accepts at most %d argument(s)", parsed.Command, bounds[1])
	case count < bounds[0]:
		return fmt.Errorf("%s requires a PATH argument", parsed.Command)
	}

	if parsed.Command == CommandHistory && count == 1 {
		n, err := strconv.Atoi(parsed.Args[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("history limit must be a positive integer, got %q", parsed.Args[0])
		}
	}
	return nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] [command] [args]

Commands:
  record        Open the interactive recorder (default)
  toggle        Start recording or stop and analyze when already recording
  stop          Stop the active recording and analyze it
  status        Print current state
  hide          Stop the active recording as if the window lost focus
  question      Fetch and print a new interview question
  analyze PATH  Upload an existing recording and print the analysis
  history [N]   List the N most recent analyses (default 20)
  devices       List available camera and microphone devices
  doctor        Run configuration and environment checks
  mcp           Serve analysis history over MCP on stdio
  version       Print version information
  help          Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/rehearse/config.jsonc)
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
