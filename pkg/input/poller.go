package input

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/atomic"
)

// DefaultExitButton is START, the "+" button on handheld controllers.
const DefaultExitButton = sdl.CONTROLLER_BUTTON_START

// Poller answers "has the user asked to exit?" once per loop iteration. It
// pumps SDL events, so it must be called from the thread that owns SDL.
type Poller struct {
	exitKey    sdl.Scancode
	exitButton sdl.GameControllerButton

	keys        KeyPressTracker
	buttons     ButtonPressTracker
	controllers map[sdl.JoystickID]*sdl.GameController

	// exit is also written by the signal goroutine
	exit *atomic.Bool

	pollEvent func() sdl.Event
	keyState  func() []uint8
}

// NewPoller creates a poller that exits on exitKey, the START button, a quit
// event or SIGINT/SIGTERM once WatchSignals runs.
func NewPoller(exitKey sdl.Scancode) *Poller {
	return &Poller{
		exitKey:     exitKey,
		exitButton:  DefaultExitButton,
		keys:        NewKeyPressTracker(),
		buttons:     NewButtonPressTracker(),
		controllers: make(map[sdl.JoystickID]*sdl.GameController),
		exit:        atomic.NewBool(false),
		pollEvent:   sdl.PollEvent,
		keyState:    sdl.GetKeyboardState,
	}
}

// ParseExitKey resolves a key name such as "Escape" or "Q". Unknown names
// fall back to Escape.
func ParseExitKey(name string) sdl.Scancode {
	if name == "" {
		return sdl.SCANCODE_ESCAPE
	}
	code := sdl.GetScancodeFromName(name)
	if code == sdl.SCANCODE_UNKNOWN {
		log.Printf("Input: unknown exit key %q, using Escape", name)
		return sdl.SCANCODE_ESCAPE
	}
	return code
}

// WatchSignals latches an exit request on SIGINT or SIGTERM until ctx ends.
func (p *Poller) WatchSignals(ctx context.Context) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(ch)
		select {
		case sig := <-ch:
			log.Printf("Input: received %v, requesting exit", sig)
			p.exit.Store(true)
		case <-ctx.Done():
		}
	}()
}

// RequestExit latches an exit request. Safe from any goroutine.
func (p *Poller) RequestExit() {
	p.exit.Store(true)
}

// ExitRequested drains pending events and reports whether exit was requested
// during this or any earlier iteration.
func (p *Poller) ExitRequested() bool {
	for event := p.pollEvent(); event != nil; event = p.pollEvent() {
		p.handleEvent(event)
	}
	if p.keys.IsPressed(p.keyState(), p.exitKey) {
		log.Printf("Input: exit key pressed")
		p.exit.Store(true)
	}
	return p.exit.Load()
}

func (p *Poller) handleEvent(event sdl.Event) {
	switch e := event.(type) {
	case *sdl.QuitEvent:
		p.exit.Store(true)

	case *sdl.ControllerDeviceEvent:
		switch e.Type {
		case sdl.CONTROLLERDEVICEADDED:
			p.openController(int(e.Which))
		case sdl.CONTROLLERDEVICEREMOVED:
			if gc, ok := p.controllers[e.Which]; ok {
				gc.Close()
				delete(p.controllers, e.Which)
				log.Printf("Input: controller %d removed", e.Which)
			}
		}

	case *sdl.ControllerButtonEvent:
		button := sdl.GameControllerButton(e.Button)
		if button != p.exitButton {
			return
		}
		if p.buttons.Update(button, e.State == sdl.PRESSED) {
			log.Printf("Input: exit button pressed on controller %d", e.Which)
			p.exit.Store(true)
		}
	}
}

func (p *Poller) openController(index int) {
	if !sdl.IsGameController(index) {
		return
	}
	gc := sdl.GameControllerOpen(index)
	if gc == nil {
		log.Printf("Input: failed to open controller %d: %v", index, sdl.GetError())
		return
	}
	id := gc.Joystick().InstanceID()
	p.controllers[id] = gc
	log.Printf("Input: controller %d opened (%s)", id, gc.Name())
}

// Close releases opened controllers.
func (p *Poller) Close() {
	for id, gc := range p.controllers {
		gc.Close()
		delete(p.controllers, id)
	}
}
