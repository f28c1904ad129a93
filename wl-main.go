package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/mstarongithub/way2shell/config"
	"github.com/sirupsen/logrus"
	"github.com/swaywm/go-wlroots/wlroots"
)

func fatal(msg string, err error) {
	fmt.Printf("error %s: %s\n", msg, err)
	os.Exit(1)
}

func wlMain(conf *config.Config) {
	wlroots.OnLog(wlroots.LogImportanceError, func(importance wlroots.LogImportance, msg string) {
		switch importance {
		case wlroots.LogImportanceDebug:
			logrus.Debugln(msg)
		case wlroots.LogImportanceInfo:
			logrus.Infoln(msg)
		case wlroots.LogImportanceError:
			logrus.Errorln(msg)
		case wlroots.LogImportanceSilent:
			return
		}
	})

	// start the server
	server, err := NewServer(conf)
	if err != nil {
		fatal("initializing server", err)
	}
	if err = server.Start(); err != nil {
		fatal("starting server", err)
	}

	switch conf.StartType {
	case config.START_REPL:
		go replRunner(server)
	case config.START_SINGLE_COMMAND:
		if conf.StartCommand != nil {
			go runStartCommand(*conf.StartCommand)
		} else {
			logrus.Warnln("Start type is single command but no command is configured")
		}
	case config.START_NONE:
	}

	// start the wayland event loop
	if err = server.Run(); err != nil {
		fatal("running server", err)
	}
}

func runStartCommand(cmdString string) {
	cmd := exec.Command("/bin/sh", "-c", cmdString)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		logrus.WithError(err).WithField("command", cmdString).Errorln("Start command failed to launch")
		return
	}
	if err := cmd.Wait(); err != nil {
		logrus.WithError(err).WithField("command", cmdString).Warnln("Start command exited badly")
	}
}
