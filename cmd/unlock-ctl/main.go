package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"
)

// ============================================================================
// unlock-ctl - Command-line IPC Client
// ============================================================================
// Sends gesture and lifecycle events to unlockd over its unix socket, the
// way the shell hosting the lock surface does.
//
// Usage:
//   unlock-ctl grab right
//   unlock-ctl trigger middle 2
//   unlock-ctl release
//   unlock-ctl snapshot
//
// Options:
//   -socket PATH    Unix domain socket path (default: /tmp/unlockd.sock)
// ============================================================================

// Wire types (duplicated from unlockd for a standalone binary)

type grab struct {
	Handle int `json:"handle"`
}

type trigger struct {
	Code int `json:"code"`
	Sub  int `json:"sub,omitempty"`
}

type orientationChanged struct {
	Orientation string `json:"orientation"`
}

type keyboardChanged struct {
	Open bool `json:"open"`
}

type ringerChanged struct {
	Mode string `json:"mode"`
}

// envelope wraps events for JSON
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ipcResponse represents the daemon's response
type ipcResponse struct {
	Status string          `json:"status"`
	Error  string          `json:"error,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

var handles = map[string]int{
	"none":   0,
	"left":   1,
	"right":  2,
	"middle": 3,
	"center": 10,
}

const dialTimeout = 2 * time.Second

func main() {
	socketPath := "/tmp/unlockd.sock"

	args := os.Args[1:]
	if len(args) > 0 && (args[0] == "-socket" || args[0] == "--socket") {
		if len(args) < 2 {
			fail("-socket requires an argument")
		}
		socketPath = args[1]
		args = args[2:]
	}

	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	env, err := buildEnvelope(args)
	if err != nil {
		fail(err.Error())
	}
	if env == nil {
		printUsage()
		os.Exit(0)
	}

	resp, err := send(socketPath, *env)
	if err != nil {
		fail(err.Error())
	}

	if len(resp.Data) > 0 {
		var pretty any
		if err := json.Unmarshal(resp.Data, &pretty); err == nil {
			b, _ := json.MarshalIndent(pretty, "", "  ")
			fmt.Println(string(b))
			return
		}
	}
	fmt.Println("ok")
}

// buildEnvelope turns command-line arguments into a wire event. It
// returns nil for help.
func buildEnvelope(args []string) (*envelope, error) {
	withData := func(typ string, v any) (*envelope, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", typ, err)
		}
		return &envelope{Type: typ, Data: b}, nil
	}
	need := func(n int, usage string) error {
		if len(args) < n {
			return fmt.Errorf("usage: unlock-ctl %s", usage)
		}
		return nil
	}

	switch args[0] {
	case "grab":
		if err := need(2, "grab <left|right|middle|center|none>"); err != nil {
			return nil, err
		}
		h, err := parseHandle(args[1])
		if err != nil {
			return nil, err
		}
		return withData("grab", grab{Handle: h})

	case "trigger":
		if err := need(2, "trigger <handle|target index> [slot]"); err != nil {
			return nil, err
		}
		code, err := parseHandle(args[1])
		if err != nil {
			return nil, err
		}
		t := trigger{Code: code}
		if len(args) > 2 {
			if t.Sub, err = strconv.Atoi(args[2]); err != nil {
				return nil, fmt.Errorf("invalid slot %q", args[2])
			}
		}
		return withData("trigger", t)

	case "release":
		return &envelope{Type: "release"}, nil
	case "pause":
		return &envelope{Type: "pause"}, nil
	case "resume":
		return &envelope{Type: "resume"}, nil
	case "menu":
		return &envelope{Type: "menu_key"}, nil
	case "snapshot":
		return &envelope{Type: "snapshot"}, nil

	case "orientation":
		if err := need(2, "orientation <portrait|landscape>"); err != nil {
			return nil, err
		}
		return withData("orientation_changed", orientationChanged{Orientation: args[1]})

	case "keyboard":
		if err := need(2, "keyboard <open|closed>"); err != nil {
			return nil, err
		}
		switch args[1] {
		case "open":
			return withData("keyboard_changed", keyboardChanged{Open: true})
		case "closed", "close":
			return withData("keyboard_changed", keyboardChanged{Open: false})
		}
		return nil, fmt.Errorf("keyboard state must be open or closed, got %q", args[1])

	case "ringer":
		if err := need(2, "ringer <normal|vibrate|silent>"); err != nil {
			return nil, err
		}
		return withData("ringer_changed", ringerChanged{Mode: args[1]})

	case "help", "-h", "--help":
		return nil, nil
	}

	return nil, fmt.Errorf("unknown command: %s", args[0])
}

// parseHandle accepts a handle name or a raw code (multi-target indices).
func parseHandle(s string) (int, error) {
	if h, ok := handles[s]; ok {
		return h, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("unknown handle %q", s)
	}
	return n, nil
}

func send(socketPath string, env envelope) (ipcResponse, error) {
	conn, err := net.DialTimeout("unix", socketPath, dialTimeout)
	if err != nil {
		return ipcResponse{}, fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	data, err := json.Marshal(env)
	if err != nil {
		return ipcResponse{}, fmt.Errorf("marshal event: %w", err)
	}

	// Line-delimited JSON
	if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
		return ipcResponse{}, fmt.Errorf("send event: %w", err)
	}

	var resp ipcResponse
	if err := json.NewDecoder(bufio.NewReader(conn)).Decode(&resp); err != nil {
		return ipcResponse{}, fmt.Errorf("decode response: %w", err)
	}
	if resp.Status == "error" {
		return resp, fmt.Errorf("daemon error: %s", resp.Error)
	}
	return resp, nil
}

func fail(msg string) {
	fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	os.Exit(1)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `unlock-ctl - Drive the unlockd lock surface via IPC

Usage:
  unlock-ctl [options] <command> [args]

Options:
  -socket PATH    Unix domain socket path (default: /tmp/unlockd.sock)

Commands:
  grab <handle>                 Grab a handle (left, right, middle, center, none)
  trigger <handle|index> [slot] Complete a gesture; multi-target takes an index 0-3
  release                       End a gesture without triggering
  pause, resume                 Hide or show the surface
  menu                          Press the hardware menu key
  orientation <portrait|landscape>
  keyboard <open|closed>        Slide the hardware keyboard
  ringer <normal|vibrate|silent> Report an external ringer change
  snapshot                      Print the controller state
  help, -h, --help              Show this help message

Examples:
  unlock-ctl trigger right
  unlock-ctl trigger middle 2
  unlock-ctl -socket /run/unlockd.sock snapshot
`)
}
