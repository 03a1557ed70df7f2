// dashio renders config-declared MQTT feeds on a character display and
// lets the user walk the rows with pushbuttons.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/daemon"
	"github.com/juju/errors"
	"github.com/temoto/alive/v2"

	"github.com/antufev/dashio/dash"
	"github.com/antufev/dashio/display"
	"github.com/antufev/dashio/hardware/input"
	"github.com/antufev/dashio/hardware/lcd"
	"github.com/antufev/dashio/log2"
	"github.com/antufev/dashio/state"
	"github.com/antufev/dashio/tele"
)

// Back held this many consecutive ticks requests shutdown.
const backHoldTicks = 20

var log = log2.NewStderr(log2.LInfo)

func main() {
	flagConfig := flag.String("config", "dashio.hcl", "config file path")
	flagDebug := flag.Bool("debug", false, "debug logging")
	flag.Parse()

	if sdnotify("STATUS=init") {
		// under systemd, journal adds timestamps
		log.SetFlags(log2.LServiceFlags)
	} else {
		log.SetFlags(log2.LInteractiveFlags)
	}
	if *flagDebug {
		log.SetLevel(log2.LDebug)
	}
	log.Infof("hello")

	config := state.MustReadFile(log, *flagConfig)
	log.Debugf("config=%+v", config)

	a := alive.NewAlive()

	lcdConfig := config.Hardware.Display.Lcd
	if lcdConfig.Width == 0 {
		lcdConfig.Width = config.Hardware.Display.Width
	}
	dev, err := lcd.NewLCD(lcdConfig)
	fatalIf(err)
	defer dev.Close()

	panel, err := display.NewPanel(&display.PanelConfig{
		Width:       uint32(config.Hardware.Display.Width),
		Codepage:    config.Hardware.Display.Codepage,
		ScrollDelay: config.ScrollDelay(),
	})
	fatalIf(err)
	panel.SetDevice(dev)
	go panel.Run()
	defer panel.Stop()

	buttons, err := input.NewButtons(config.Hardware.Input, log)
	fatalIf(err)
	defer buttons.Close()

	bus, err := tele.NewMqtt(config.Mqtt, log)
	fatalIf(err)
	defer bus.Close()

	hub, err := dash.NewHub(dash.HubOptions{
		Bus:       bus,
		Sink:      panel,
		Nav:       buttons,
		Header:    config.UI.Header,
		PollDelay: config.PollDelay(),
		Log:       log,
	})
	fatalIf(err)

	for _, fc := range config.Feeds {
		opt, err := fc.Dash()
		fatalIf(err)
		fatalIf(hub.AddFeed(fc.Name, opt))
	}

	if err := hub.PollAll(); err != nil {
		log.Errorf("poll: %v", err)
	}

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigch
		a.Stop()
	}()

	sdnotify(daemon.SdNotifyReady)
	log.Infof("running feeds=%d", len(config.Feeds))

	tick := time.NewTicker(config.Tick())
	defer tick.Stop()
	stopch := a.StopChan()
	backHeld := 0
	for a.IsRunning() {
		select {
		case <-tick.C:
			if err := hub.Tick(); err != nil {
				// bad payload is fatal to that message, not the loop
				log.Errorf("tick: %v", err)
			}
			if hub.LastNav().Back {
				backHeld++
				if backHeld >= backHoldTicks {
					log.Infof("back held, stopping")
					a.Stop()
				}
			} else {
				backHeld = 0
			}
		case <-stopch:
		}
	}

	sdnotify(daemon.SdNotifyStopping)
	log.Infof("goodbye")
}

func fatalIf(err error) {
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
}

func sdnotify(s string) bool {
	ok, err := daemon.SdNotify(false, s)
	if err != nil {
		log.Fatal("sdnotify: ", errors.ErrorStack(err))
	}
	return ok
}
