package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"volmixer/alsa"
	"volmixer/mixer"
	"volmixer/simhw"
)

// ============================================================================
// volmixer-ctl - Command-line Client
// ============================================================================
// Sends commands to volmixerd over its Unix socket, or with -direct drives
// the sound hardware itself.
//
// Usage:
//   volmixer-ctl list
//   volmixer-ctl get Master
//   volmixer-ctl set-volume Master 40
//   volmixer-ctl set-balance Headphone -20
//   volmixer-ctl up Master [steps]
//   volmixer-ctl down Master [steps]
// ============================================================================

// commandEnvelope mirrors the daemon's IPC request framing.
type commandEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type channelArgs struct {
	Name  string `json:"name"`
	Card  *int   `json:"card,omitempty"`
	Value *int   `json:"value,omitempty"`
	Steps *int   `json:"steps,omitempty"`
}

// ipcResponse mirrors the daemon's IPC response.
type ipcResponse struct {
	Status   string           `json:"status"`
	Error    string           `json:"error,omitempty"`
	Channels []mixer.Snapshot `json:"channels,omitempty"`
}

// request is a parsed command line.
type request struct {
	Type string
	Args channelArgs
}

func printUsage() {
	fmt.Println("volmixer-ctl - control volmixerd channels")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  volmixer-ctl [OPTIONS] COMMAND [ARGS]")
	fmt.Println()
	fmt.Println("COMMANDS:")
	fmt.Println("  list                        List every channel")
	fmt.Println("  get NAME                    Show one channel")
	fmt.Println("  set-volume NAME PERCENT     Set volume (0..100)")
	fmt.Println("  set-balance NAME BALANCE    Set balance (-100 left .. 100 right)")
	fmt.Println("  up NAME [STEPS]             Step volume up (default 1 step)")
	fmt.Println("  down NAME [STEPS]           Step volume down (default 1 step)")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -socket PATH      Daemon socket (default \"/tmp/volmixer.sock\")")
	fmt.Println("  -card N           Pick the channel on card N when names repeat")
	fmt.Println("  -direct           Talk to the hardware instead of the daemon")
	fmt.Println("  -backend KIND     Backend for -direct: alsa|sim (default \"alsa\")")
	fmt.Println("  -sim-file PATH    Machine description for -backend sim")
	fmt.Println("  -step-percent N   Step size for -direct up/down (default 2)")
	fmt.Println("  -json             Print raw JSON")
	fmt.Println()
}

func main() {
	fs := flag.NewFlagSet("volmixer-ctl", flag.ExitOnError)
	socketPath := fs.String("socket", "/tmp/volmixer.sock", "daemon socket")
	card := fs.Int("card", -1, "card index")
	direct := fs.Bool("direct", false, "drive the hardware directly")
	backend := fs.String("backend", "alsa", "backend for -direct")
	simFile := fs.String("sim-file", "", "sim machine description")
	stepPercent := fs.Int("step-percent", 2, "step size for -direct")
	asJSON := fs.Bool("json", false, "print raw JSON")
	fs.Usage = printUsage
	_ = fs.Parse(os.Args[1:])

	args := fs.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	if args[0] == "help" {
		printUsage()
		return
	}

	req, err := parseCommand(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if *card >= 0 {
		req.Args.Card = card
	}

	var chs []mixer.Snapshot
	if *direct {
		chs, err = runDirect(*backend, *simFile, *stepPercent, req)
	} else {
		chs, err = send(*socketPath, req)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(chs)
		return
	}
	printChannels(os.Stdout, chs, isTerminal(os.Stdout))
}

// parseCommand turns positional arguments into a request.
func parseCommand(args []string) (request, error) {
	cmd := args[0]
	rest := args[1:]

	need := func(n int, usage string) error {
		if len(rest) < n {
			return fmt.Errorf("%s requires %s", cmd, usage)
		}
		return nil
	}
	intArg := func(s, what string) (*int, error) {
		v, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q", what, s)
		}
		return &v, nil
	}

	switch cmd {
	case "list", "ls":
		return request{Type: "list_channels"}, nil

	case "get":
		if err := need(1, "a channel name"); err != nil {
			return request{}, err
		}
		return request{Type: "get_channel", Args: channelArgs{Name: rest[0]}}, nil

	case "set-volume", "set":
		if err := need(2, "a channel name and a percentage"); err != nil {
			return request{}, err
		}
		v, err := intArg(rest[1], "volume")
		if err != nil {
			return request{}, err
		}
		return request{Type: "set_volume", Args: channelArgs{Name: rest[0], Value: v}}, nil

	case "set-balance", "balance":
		if err := need(2, "a channel name and a balance"); err != nil {
			return request{}, err
		}
		v, err := intArg(rest[1], "balance")
		if err != nil {
			return request{}, err
		}
		return request{Type: "set_balance", Args: channelArgs{Name: rest[0], Value: v}}, nil

	case "up", "down", "volume-up", "volume-down":
		if err := need(1, "a channel name"); err != nil {
			return request{}, err
		}
		steps := 1
		if len(rest) > 1 {
			n, err := intArg(rest[1], "step count")
			if err != nil {
				return request{}, err
			}
			if *n < 1 {
				return request{}, fmt.Errorf("step count must be positive")
			}
			steps = *n
		}
		if strings.HasSuffix(cmd, "down") {
			steps = -steps
		}
		return request{Type: "step_volume", Args: channelArgs{Name: rest[0], Steps: &steps}}, nil
	}

	return request{}, fmt.Errorf("unknown command: %s", cmd)
}

// send performs one IPC round trip.
func send(socketPath string, req request) ([]mixer.Snapshot, error) {
	conn, err := net.DialTimeout("unix", socketPath, time.Second)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	env := commandEnvelope{Type: req.Type}
	if req.Type != "list_channels" {
		if env.Data, err = json.Marshal(req.Args); err != nil {
			return nil, fmt.Errorf("marshal command: %w", err)
		}
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal command: %w", err)
	}

	if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
		return nil, fmt.Errorf("send command: %w", err)
	}

	var resp ipcResponse
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.Status != "ok" {
		return nil, errors.New(resp.Error)
	}
	return resp.Channels, nil
}

// runDirect executes req against a registry of its own.
func runDirect(backend, simFile string, stepPercent int, req request) ([]mixer.Snapshot, error) {
	var hw mixer.Hardware
	switch backend {
	case "alsa":
		hw = alsa.New()
	case "sim":
		if simFile == "" {
			return nil, errors.New("-backend sim requires -sim-file")
		}
		h, err := simhw.LoadFile(simFile)
		if err != nil {
			return nil, err
		}
		hw = h
	default:
		return nil, fmt.Errorf("unknown backend %q", backend)
	}

	reg := mixer.NewRegistry(hw)
	defer reg.Close()
	return execute(reg, stepPercent, req)
}

func execute(reg *mixer.Registry, stepPercent int, req request) ([]mixer.Snapshot, error) {
	if req.Type == "list_channels" {
		var out []mixer.Snapshot
		for _, ch := range reg.Channels() {
			out = append(out, ch.Snapshot())
		}
		return out, nil
	}

	var ch *mixer.ChannelVolume
	var err error
	if req.Args.Card != nil {
		ch, err = reg.LookupOnCard(*req.Args.Card, req.Args.Name)
	} else {
		ch, err = reg.Lookup(req.Args.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", req.Args.Name, err)
	}

	switch req.Type {
	case "set_volume":
		err = ch.WriteVolume(*req.Args.Value)
	case "set_balance":
		err = ch.WriteBalance(*req.Args.Value)
	case "step_volume":
		var cur int
		if cur, err = ch.ReadVolume(); err == nil {
			err = ch.WriteVolume(cur + *req.Args.Steps*stepPercent)
		}
	}
	if err != nil {
		return nil, err
	}
	return []mixer.Snapshot{ch.Snapshot()}, nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// printChannels writes an aligned table with volume bars on a terminal and
// tab-separated lines otherwise.
func printChannels(w io.Writer, chs []mixer.Snapshot, tty bool) {
	if !tty {
		for _, c := range chs {
			fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\n", c.Card, c.Name, c.Volume, c.Balance, c.Scale)
		}
		return
	}

	barWidth := 0
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width >= 80 {
		barWidth = 20
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CARD\tNAME\tVOLUME\tBALANCE\tSCALE\t")
	for _, c := range chs {
		balance := "-"
		if c.Stereo {
			balance = strconv.Itoa(c.Balance)
		}
		fmt.Fprintf(tw, "%d\t%s\t%3d%% %s\t%s\t%s\t\n", c.Card, c.Name, c.Volume, bar(c.Volume, barWidth), balance, c.Scale)
	}
	_ = tw.Flush()
}

func bar(percent, width int) string {
	if width == 0 {
		return ""
	}
	filled := percent * width / 100
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}
