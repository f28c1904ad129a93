package main

import (
	"flag"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/swaywm/go-wlroots/wlroots"
	"gitlab.com/mstarongitlab/goutils/sliceutils"

	"github.com/mstarongithub/way2shell/config"
)

var (
	utilAction *string = flag.String(
		"action",
		"",
		"The action to perform. Can be one of:"+
			"\n\t- none: Do nothing"+
			"\n\t- outputs: List available outputs"+
			"\n\t- modes <output>: List available modes for an output"+
			"\n\t- state: Dump the shell's window and layer state as json",
	)
	outputSelection *string = flag.String(
		"output",
		"",
		"Output to perform the action on. Required for some actions",
	)
)

func utilMain(conf *config.Config) {
	if *help {
		utilHelpMessage()
		return
	}

	// Init a server, used for stuff like getting displays
	server, err := NewServer(conf)
	if err != nil {
		logrus.WithError(err).Fatal("initializing server")
	}
	if err = server.Start(); err != nil {
		logrus.WithError(err).Fatal("starting server")
	}

	switch *utilAction {
	case "outputs":
		utilListOutputs(server)
	case "modes":
		if *outputSelection == "" {
			fmt.Println("Output has to be specified")
			return
		} else {
			utilListOutputModes(server, *outputSelection)
		}
	case "state":
		utilDumpState(server)
	}
}

func utilHelpMessage() {
	fmt.Println("---- Help message for Way2Shell in tool mode ----")
	fmt.Println("\nIn tool mode, w2s will offer various tools for figuring out configurations and similar")
	fmt.Println("\nGeneral flags:")
	fmt.Println("\t-config: Path to the config file. Default is searching the XDG config dirs")
	fmt.Println("\t-tool: Start as a tool instead of a compositor")
	fmt.Println("\t-help: Show this help message (or the one for compositor mode if -tool is not set)")
	fmt.Println("\nTool flags:")
	fmt.Println("\t-action: The action to perform. Can be one of:")
	fmt.Println("\t\t- (default) outputs: List available outputs")
	fmt.Println("\t\t- modes: List available modes for an output. Use with -output")
	fmt.Println("\t\t- state: Dump the shell's window and layer state as json")
	fmt.Println("\t-output: Output to perform the action on. Required for -action modes")
}

// utilDumpState prints the ipc window and layer responses for this
// instance. Mostly useful under a nested backend where a start command has
// already mapped surfaces.
func utilDumpState(server *Server) {
	snap := server.Snapshot()
	windows, err := marshalResponse(buildWindowResponse(snap, true))
	if err != nil {
		logrus.WithError(err).Errorln("Failed to marshal window state")
		return
	}
	layers, err := marshalResponse(buildLayerResponse(snap, ""))
	if err != nil {
		logrus.WithError(err).Errorln("Failed to marshal layer state")
		return
	}
	fmt.Println(windows)
	fmt.Println(layers)
}

func utilListOutputs(server *Server) {
	outputs := server.GetOutputs()
	for i, output := range outputs {
		fmt.Printf("Output %v: %s\n", i, output.Name())
	}
}

func utilListOutputModes(server *Server, outputName string) {
	outputs := server.GetOutputs()
	filtered := sliceutils.Filter(outputs, func(output *wlroots.Output) bool {
		return output.Name() == outputName
	})
	if len(filtered) == 0 {
		fmt.Printf("Output %s not found\n", outputName)
		return
	}
	modes := filtered[0].Modes()
	fmt.Printf("Modes for output %s:\n", outputName)
	for _, mode := range modes {
		if mode.Preferred() {
			fmt.Printf("\t- %dx%d@%d(Ratio: %d) (preferred)\n", mode.Width(), mode.Height(), mode.Refresh(), mode.PictureAspectRatio())
		} else {
			fmt.Printf("\t- %dx%d@%d(Ratio: %d)\n", mode.Width(), mode.Height(), mode.Refresh(), mode.PictureAspectRatio())
		}
	}
}
