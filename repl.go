package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mstarongithub/way2shell/common/ipc"
	"github.com/mstarongithub/way2shell/repl"
	"github.com/mstarongithub/way2shell/shell"
	"github.com/mstarongithub/way2shell/util"
	"github.com/mstarongithub/way2shell/util/wrappers"
)

const eventReceiverName = "repl"

// The repl runs on its own goroutine, so it never touches the shell or the
// server's dispatch-thread fields directly. Everything it inspects comes
// from server.Snapshot().
func replRunner(server *Server) {
	// Give repl some wrappers around stdin and stdout so that it closes those instead of stdin & stdout themselves
	commandRepl := repl.NewRepl(wrappers.NewReaderWrapper(os.Stdin), wrappers.NewWriterWrapper(os.Stdout))
	logrus.Debugln("Starting repl")
	watchingEvents := false
	_ = commandRepl.Run(func(input string, r *repl.Repl) (string, error) {
		if cmdString, ok := strings.CutPrefix(input, "run "); ok {
			parts := strings.Split(cmdString, " ")
			// This is safe b/c it'll unpack into a slice of length 0
			args := parts[1:]
			// And here a slice of length 0 means that no additional arguments will be given
			// It's also safe if the repl command is "run " since the first element will now be an empty string
			// Which is also safe to "execute" since cmd.Start will just fail with the No Command error
			cmd := exec.Command(parts[0], args...)
			cmd.Stdout = r.Output
			cmd.Stderr = r.Output
			go func(cmd *exec.Cmd, cmdString string) {
				err := cmd.Start()
				if err != nil {
					logrus.WithError(err).WithField("command", cmdString).Errorln("Command failed to start")
					return
				}
				err = cmd.Wait()
				if exiterr, ok := err.(*exec.ExitError); ok {
					logrus.WithError(err).WithFields(logrus.Fields{
						"exit-code": exiterr.ExitCode(),
						"comand":    cmdString,
					}).Warningln("Bad command completion")
				}
			}(cmd, cmdString)
			return "Running " + parts[0], nil
		} else if input == "quit" {
			server.Stop()
			time.Sleep(time.Second * 5)
			return "Quitting", errors.New("normal stop")
		} else if input == "windows" || strings.HasPrefix(input, "windows ") {
			var cmd, mod string
			util.Unpack(strings.SplitN(input, " ", 2), &cmd, &mod)
			return marshalResponse(buildWindowResponse(server.Snapshot(), mod == "full"))
		} else if input == "layers" || strings.HasPrefix(input, "layers ") {
			var cmd, filter string
			util.Unpack(strings.SplitN(input, " ", 2), &cmd, &filter)
			return marshalResponse(buildLayerResponse(server.Snapshot(), filter))
		} else if input == "pending" {
			return fmt.Sprintf("Pending surfaces: %d", server.Snapshot().Pending), nil
		} else if input == "events on" {
			if watchingEvents {
				return "Already watching events", nil
			}
			events, err := server.Events().MakeReceiver(eventReceiverName, 16)
			if err != nil {
				return "", err
			}
			watchingEvents = true
			go func() {
				for event := range events {
					logrus.WithField("event", fmt.Sprintf("%T%+v", event, event)).Infoln("shell event")
				}
			}()
			return "Watching shell events", nil
		} else if input == "events off" {
			if !watchingEvents {
				return "Not watching events", nil
			}
			server.Events().CloseReceiver(eventReceiverName)
			watchingEvents = false
			return "Stopped watching shell events", nil
		} else if rawCmdString, ok := strings.CutPrefix(input, "inspect "); ok {
			var target, mod string
			util.Unpack(strings.SplitN(rawCmdString, " ", 2), &target, &mod)
			snap := server.Snapshot()
			switch target {
			case "cursor":
				switch mod {
				case "mode":
					switch snap.Mode {
					case CursorModeMove:
						return "Cursor mode: Move", nil
					case CursorModePassThrough:
						return "Cursor mode: PassThrough", nil
					case CursorModeResize:
						return "Cursor mode: Resize", nil
					default:
						return fmt.Sprintf("Cursor mode: Unknown: %+v", snap.Mode), nil
					}
				default:
					return fmt.Sprintf(
							"Cursor: Location (%f:%f)",
							server.cursor.X(),
							server.cursor.Y()),
						nil
				}
			case "grab":
				if snap.Grabbed == 0 {
					return "No grab active", nil
				}
				return fmt.Sprintf(
					"Grabbed surface %d, resize state %s, edges %s",
					snap.Grabbed, snap.Resize[snap.Grabbed].Kind, snap.ResizeEdges,
				), nil
			case "resize":
				var raw uint64
				if _, err := fmt.Sscanf(mod, "%d", &raw); err != nil {
					return "Usage: inspect resize <surface-id>", nil
				}
				return fmt.Sprintf("Resize state of %d: %s", raw, snap.Resize[shell.SurfaceID(raw)].Kind), nil
			default:
				return "Unknown inspect target. Try cursor, grab or resize", nil
			}
		}
		return "Unknown command", nil
	})
}

func buildWindowResponse(snap shellSnapshot, includeResize bool) ipc.WindowResponse {
	resp := ipc.WindowResponse{
		Windows:         []ipc.WindowInfo{},
		PendingSurfaces: snap.Pending,
	}
	for _, window := range snap.Windows {
		info := ipc.WindowInfo{
			Surface: uint64(window.Surface),
			X:       window.Location.X,
			Y:       window.Location.Y,
			Width:   window.Size.X,
			Height:  window.Size.Y,
		}
		if includeResize {
			info.ResizeState = snap.Resize[window.Surface].Kind.String()
		}
		resp.Windows = append(resp.Windows, info)
	}
	resp.WindowsFound = len(resp.Windows)
	return resp
}

func buildLayerResponse(snap shellSnapshot, filter string) ipc.LayerResponse {
	resp := ipc.LayerResponse{Layers: []ipc.LayerInfo{}}
	for i := range snap.Layers {
		entry := &snap.Layers[i]
		if filter != "" && entry.Layer.String() != filter {
			continue
		}
		resp.Layers = append(resp.Layers, ipc.LayerInfo{
			Surface:    uint64(entry.Surface),
			Namespace:  entry.Namespace,
			Layer:      entry.Layer.String(),
			Output:     entry.Output,
			Configured: entry.InitialConfigureSent(),
		})
	}
	resp.LayersFound = len(resp.Layers)
	return resp
}

func marshalResponse(resp any) (string, error) {
	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}
