// Package indicator drives the "sending" lamp the uploader switches on for
// each delivery attempt.
package indicator

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/luki/roaster/internal/roast"
)

const ledClass = "/sys/class/leds"

// LED toggles a Linux LED class device through its brightness file.
type LED struct {
	name       string
	brightness string
	log        zerolog.Logger

	mu     sync.Mutex
	active bool
}

// NewLED opens the LED named name under root ("" means /sys/class/leds).
// The kernel trigger is set to "none" so brightness writes are not
// overridden.
func NewLED(root, name string, log zerolog.Logger) (*LED, error) {
	if root == "" {
		root = ledClass
	}
	dir := filepath.Join(root, name)
	brightness := filepath.Join(dir, "brightness")
	if _, err := os.Stat(brightness); err != nil {
		return nil, fmt.Errorf("led %s: %w", name, err)
	}

	trigger := filepath.Join(dir, "trigger")
	if _, err := os.Stat(trigger); err == nil {
		if err := os.WriteFile(trigger, []byte("none"), 0644); err != nil {
			return nil, fmt.Errorf("led %s: set trigger: %w", name, err)
		}
	}

	l := &LED{
		name:       name,
		brightness: brightness,
		log:        log.With().Str("component", "indicator").Str("led", name).Logger(),
	}
	l.write(false)
	return l, nil
}

// SetActive switches the LED on or off. Write failures are logged only.
func (l *LED) SetActive(active bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active == active {
		return
	}
	l.write(active)
}

// Active reports the last state written.
func (l *LED) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

func (l *LED) write(active bool) {
	v := "0"
	if active {
		v = "1"
	}
	if err := os.WriteFile(l.brightness, []byte(v), 0644); err != nil {
		l.log.Warn().Err(err).Msg("led write failed")
		return
	}
	l.active = active
}

// Close switches the LED off.
func (l *LED) Close() error {
	l.SetActive(false)
	return nil
}

type multi []roast.Indicator

// Multi fans a state change out to every indicator, in order. With no
// indicators it returns Nop.
func Multi(inds ...roast.Indicator) roast.Indicator {
	var m multi
	for _, i := range inds {
		if i != nil {
			m = append(m, i)
		}
	}
	switch len(m) {
	case 0:
		return Nop{}
	case 1:
		return m[0]
	}
	return m
}

func (m multi) SetActive(active bool) {
	for _, i := range m {
		i.SetActive(active)
	}
}

// Nop ignores every state change.
type Nop struct{}

func (Nop) SetActive(bool) {}
