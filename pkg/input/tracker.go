package input

import "github.com/veandco/go-sdl2/sdl"

// KeyPressTracker manages key press state to prevent duplicate key presses
type KeyPressTracker struct {
	pressed map[sdl.Scancode]bool
}

// NewKeyPressTracker creates a new KeyPressTracker
func NewKeyPressTracker() KeyPressTracker {
	return KeyPressTracker{
		pressed: make(map[sdl.Scancode]bool),
	}
}

// IsPressed checks if a key was just pressed (not held). Scancodes outside
// keyState count as released.
func (kpt *KeyPressTracker) IsPressed(keyState []uint8, scancode sdl.Scancode) bool {
	isCurrentlyPressed := int(scancode) < len(keyState) && keyState[scancode] != 0
	wasPressed := kpt.pressed[scancode]

	kpt.pressed[scancode] = isCurrentlyPressed

	return isCurrentlyPressed && !wasPressed
}

// ButtonPressTracker does the same for game-controller buttons
type ButtonPressTracker struct {
	pressed map[sdl.GameControllerButton]bool
}

// NewButtonPressTracker creates a new ButtonPressTracker
func NewButtonPressTracker() ButtonPressTracker {
	return ButtonPressTracker{
		pressed: make(map[sdl.GameControllerButton]bool),
	}
}

// Update records the state of a button and reports a fresh press
func (bpt *ButtonPressTracker) Update(button sdl.GameControllerButton, down bool) bool {
	wasPressed := bpt.pressed[button]
	bpt.pressed[button] = down
	return down && !wasPressed
}
