package common

// Virtual key codes for the viewer's keyboard selection.
// These values match GLFW key codes which use ASCII values for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeySpace = 32  // Spacebar (ASCII)
	KeyEnter = 257 // Enter key (GLFW)
	KeyTab   = 258 // Tab key (GLFW)
	KeyEsc   = 256 // Escape key (GLFW)
	KeyR     = 82  // R key (ASCII)

	Key1 = 49 // 1 key (ASCII)
	Key9 = 57 // 9 key (ASCII)
)

// DigitIndex maps the keys 1..9 to a zero-based slot index.
//
// Parameters:
//   - key: the key code
//
// Returns:
//   - int: the slot index, or -1 when the key is not a selection digit
func DigitIndex(key int) int {
	if key < Key1 || key > Key9 {
		return -1
	}
	return key - Key1
}

// IsActivationKey reports whether the key activates a focused tile.
func IsActivationKey(key int) bool {
	return key == KeyEnter || key == KeySpace
}
