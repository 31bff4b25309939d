package device

import (
	"fmt"
	"os"
	"strings"
)

// Torch - optional flashlight capability
type Torch interface {
	Available() bool
	SetTorch(on bool) error
}

// NoTorch - platform without a flashlight
type NoTorch struct{}

// Available - always false
func (NoTorch) Available() bool { return false }

// SetTorch - always fails
func (NoTorch) SetTorch(bool) error { return fmt.Errorf("flashlight is not available on this platform") }

// SysfsTorch - flashlight driven through a Linux LED class brightness file,
// e.g. /sys/class/leds/led:flash_torch/brightness
type SysfsTorch struct {
	path string
}

// NewSysfsTorch - SysfsTorch constructor
func NewSysfsTorch(path string) *SysfsTorch {
	return &SysfsTorch{path: path}
}

// Available - true when the brightness file exists
func (t *SysfsTorch) Available() bool {
	if t == nil || t.path == "" {
		return false
	}
	info, err := os.Stat(t.path)
	return err == nil && !info.IsDir()
}

// SetTorch - writes the maximum brightness, or 0 to switch off
func (t *SysfsTorch) SetTorch(on bool) error {
	if !t.Available() {
		return fmt.Errorf("flashlight control %q not found", t.path)
	}
	value := "0"
	if on {
		value = t.maxBrightness()
	}
	if err := os.WriteFile(t.path, []byte(value+"\n"), 0o644); err != nil {
		return fmt.Errorf("cannot set flashlight: %w", err)
	}
	return nil
}

func (t *SysfsTorch) maxBrightness() string {
	b, err := os.ReadFile(strings.TrimSuffix(t.path, "brightness") + "max_brightness")
	if err != nil {
		return "1"
	}
	if v := strings.TrimSpace(string(b)); v != "" && v != "0" {
		return v
	}
	return "1"
}
