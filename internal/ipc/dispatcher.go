// Package ipc exposes the battery operations as commands invoked by name over
// a JSON-lines stream, one request object per input line:
//
//	{"seq":1,"cmd":"get_battery_info","args":{"id":"/org/bluez/hci0/dev_AA"}}
//
// and one response object per output line, in completion order:
//
//	{"seq":1,"ok":[{"battery_level":75,"user_descriptor":"Left"}]}
//	{"seq":2,"error":"device \"x\" not found"}
package ipc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/blebat/battery"
	"github.com/srg/blebat/internal/groutine"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Command names
const (
	CmdListBatteryDevices = "list_battery_devices"
	CmdGetBatteryInfo     = "get_battery_info"
	CmdListCommands       = "list_commands"
)

// maxLineSize bounds a single request line.
const maxLineSize = 1 << 20

// BatteryService is the pair of operations the dispatcher serves.
// *battery.Gateway implements it.
type BatteryService interface {
	ListBatteryDevices(ctx context.Context) ([]battery.DeviceIdentity, error)
	GetBatteryInfo(ctx context.Context, id string) ([]battery.Reading, error)
}

// Request is one decoded input line.
type Request struct {
	Seq  int64           `json:"seq"`
	Cmd  string          `json:"cmd"`
	Args json.RawMessage `json:"args,omitempty"`
}

// Response carries either OK or Error, never both.
type Response struct {
	Seq   int64  `json:"seq"`
	OK    any    `json:"ok,omitempty"`
	Error string `json:"error,omitempty"`
}

// Handler runs one command. args is the raw "args" member, possibly empty.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

// CommandInfo describes a registered command.
type CommandInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type command struct {
	description string
	handler     Handler
}

// Dispatcher routes requests to registered commands. Each request runs on its
// own goroutine, bounded by the per-request timeout.
type Dispatcher struct {
	commands *orderedmap.OrderedMap[string, command]
	timeout  time.Duration
	logger   *logrus.Logger

	writeMu sync.Mutex
}

// NewDispatcher registers the battery commands and list_commands.
// A zero timeout leaves requests bounded only by the Serve context.
func NewDispatcher(svc BatteryService, timeout time.Duration, logger *logrus.Logger) *Dispatcher {
	if logger == nil {
		logger = logrus.New()
	}

	d := &Dispatcher{
		commands: orderedmap.New[string, command](),
		timeout:  timeout,
		logger:   logger,
	}

	d.Register(CmdListBatteryDevices, "List connected devices exposing the Battery Service",
		func(ctx context.Context, _ json.RawMessage) (any, error) {
			return svc.ListBatteryDevices(ctx)
		})

	d.Register(CmdGetBatteryInfo, "Read Battery Level characteristics of a device: {\"id\": string}",
		func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args struct {
				ID string `json:"id"`
			}
			if len(raw) > 0 {
				if err := json.Unmarshal(raw, &args); err != nil {
					return nil, fmt.Errorf("invalid arguments: %w", err)
				}
			}
			if args.ID == "" {
				return nil, errors.New("missing required argument: id")
			}
			return svc.GetBatteryInfo(ctx, args.ID)
		})

	d.Register(CmdListCommands, "List available commands",
		func(context.Context, json.RawMessage) (any, error) {
			return d.Commands(), nil
		})

	return d
}

// Register adds or replaces a command. Replacing keeps the original position.
func (d *Dispatcher) Register(name, description string, h Handler) {
	d.commands.Set(name, command{description: description, handler: h})
}

// Commands lists registered commands in registration order.
func (d *Dispatcher) Commands() []CommandInfo {
	infos := make([]CommandInfo, 0, d.commands.Len())
	for pair := d.commands.Oldest(); pair != nil; pair = pair.Next() {
		infos = append(infos, CommandInfo{Name: pair.Key, Description: pair.Value.description})
	}
	return infos
}

// Handle runs a single request synchronously.
func (d *Dispatcher) Handle(ctx context.Context, req Request) Response {
	cmd, ok := d.commands.Get(req.Cmd)
	if !ok {
		return Response{Seq: req.Seq, Error: fmt.Sprintf("unknown command %q", req.Cmd)}
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	log := d.logger.WithFields(logrus.Fields{
		"seq":     req.Seq,
		"command": req.Cmd,
	})
	if name := groutine.GetName(ctx); name != "" {
		log = log.WithField("goroutine", name)
	}
	log.Debug("Handling request...")

	result, err := cmd.handler(ctx, req.Args)
	if err != nil {
		log.WithError(err).Debug("Request failed")
		return Response{Seq: req.Seq, Error: err.Error()}
	}
	return Response{Seq: req.Seq, OK: result}
}

// Serve reads requests from r until EOF or ctx ends, and writes one response
// per request to w. It returns after every started request has responded.
func (d *Dispatcher) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	var inflight groutine.Group
	defer inflight.Wait()

	enc := json.NewEncoder(w)
	lines := make(chan requestLine)
	readErr := make(chan error, 1)

	groutine.Go(ctx, "ipc-reader", func(ctx context.Context) {
		br := bufio.NewReaderSize(r, 64*1024)
		for {
			line, err := readLine(br)
			if len(line.data) > 0 || line.tooLong {
				select {
				case lines <- line:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				if errors.Is(err, io.EOF) {
					err = nil
				}
				readErr <- err
				return
			}
		}
	})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			return err
		case line := <-lines:
			if line.tooLong {
				d.write(enc, Response{Error: fmt.Sprintf("request line exceeds %d bytes", maxLineSize)})
				continue
			}
			if len(bytes.TrimSpace(line.data)) == 0 {
				continue
			}

			var req Request
			if err := json.Unmarshal(line.data, &req); err != nil {
				d.write(enc, Response{Error: fmt.Sprintf("malformed request: %v", err)})
				continue
			}

			inflight.Go(ctx, fmt.Sprintf("ipc-%s-%d", req.Cmd, req.Seq), func(ctx context.Context) {
				d.write(enc, d.Handle(ctx, req))
			})
		}
	}
}

type requestLine struct {
	data    []byte
	tooLong bool
}

// readLine returns the next line without its terminator. A line longer than
// maxLineSize is consumed up to its newline and reported as tooLong.
func readLine(br *bufio.Reader) (requestLine, error) {
	var line requestLine
	for {
		chunk, err := br.ReadSlice('\n')
		if !line.tooLong {
			line.data = append(line.data, chunk...)
			if len(line.data) > maxLineSize+1 {
				line.data, line.tooLong = nil, true
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		line.data = bytes.TrimSuffix(line.data, []byte("\n"))
		if len(line.data) > maxLineSize {
			line.data, line.tooLong = nil, true
		}
		return line, err
	}
}

func (d *Dispatcher) write(enc *json.Encoder, resp Response) {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	if err := enc.Encode(resp); err != nil {
		d.logger.WithError(err).WithField("seq", resp.Seq).Error("Failed to write response")
	}
}
