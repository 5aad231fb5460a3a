package gpio

import (
	"errors"
	"sync"
	"testing"
)

func TestMockDriverRecordsHistory(t *testing.T) {
	d := NewMockDriver()

	if _, ok := d.Level(17); ok {
		t.Error("expected pin 17 to be undriven initially")
	}

	if err := d.SetLevel(17, High); err != nil {
		t.Fatalf("SetLevel: %v", err)
	}
	if err := d.SetLevel(17, Low); err != nil {
		t.Fatalf("SetLevel: %v", err)
	}
	if err := d.SetLevel(27, High); err != nil {
		t.Fatalf("SetLevel: %v", err)
	}

	level, ok := d.Level(17)
	if !ok || level != Low {
		t.Errorf("pin 17 level = %v, ok=%v, want LOW", level, ok)
	}

	history := d.History(17)
	if len(history) != 2 || history[0] != High || history[1] != Low {
		t.Errorf("pin 17 history = %v, want [HIGH LOW]", history)
	}

	// Pins are independent.
	if history := d.History(27); len(history) != 1 || history[0] != High {
		t.Errorf("pin 27 history = %v, want [HIGH]", history)
	}
}

func TestMockDriverInjectedErrors(t *testing.T) {
	d := NewMockDriver()
	wantErr := errors.New("boom")
	d.SetLevelErr = wantErr

	if err := d.SetLevel(5, High); !errors.Is(err, wantErr) {
		t.Errorf("SetLevel error = %v, want %v", err, wantErr)
	}
	if _, ok := d.Level(5); ok {
		t.Error("failed SetLevel must not record a level")
	}
}

func TestMockDriverCleanupAndClose(t *testing.T) {
	d := NewMockDriver()

	if err := d.SetLevel(4, High); err != nil {
		t.Fatalf("SetLevel: %v", err)
	}
	if d.Cleaned(4) {
		t.Error("pin 4 should not be cleaned before Cleanup")
	}
	if err := d.Cleanup(4); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if !d.Cleaned(4) {
		t.Error("pin 4 should be cleaned after Cleanup")
	}

	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !d.Closed() {
		t.Error("driver should report closed")
	}
}

func TestMockDriverConcurrentPins(t *testing.T) {
	d := NewMockDriver()

	var wg sync.WaitGroup
	for pin := 0; pin < 8; pin++ {
		wg.Add(1)
		go func(pin int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_ = d.SetLevel(pin, High)
				_ = d.SetLevel(pin, Low)
			}
		}(pin)
	}
	wg.Wait()

	for pin := 0; pin < 8; pin++ {
		if got := len(d.History(pin)); got != 200 {
			t.Errorf("pin %d history length = %d, want 200", pin, got)
		}
	}
}

func TestLevelHelpers(t *testing.T) {
	if High.Invert() != Low || Low.Invert() != High {
		t.Error("Invert should flip levels")
	}
	if High.String() != "HIGH" || Low.String() != "LOW" {
		t.Errorf("String() = %q/%q", High.String(), Low.String())
	}
}
