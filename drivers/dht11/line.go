package dht11

// Pin is the single data line between host and sensor.
//
// Output switches the line to push-pull drive; Input releases it to a
// high-impedance input (the bus pull-up then holds it high unless the sensor
// pulls it low). Configuration is assumed to always succeed.
type Pin interface {
	Output()
	Input()
	Set(high bool)
	Get() bool
}

// Mode is the electrical mode the driver last put the line into.
type Mode uint8

const (
	ModeUnset Mode = iota
	ModeOutput
	ModeInput
)

func (m Mode) String() string {
	switch m {
	case ModeOutput:
		return "output"
	case ModeInput:
		return "input"
	default:
		return "unset"
	}
}

// line tracks mode transitions on the data line. The sensor reads the switch
// from driven to released as part of the start signal, so transitions are
// explicit steps rather than side effects of Set/Get.
type line struct {
	pin  Pin
	mode Mode
}

// drive puts the line in output mode (if not already) and sets its level.
func (l *line) drive(high bool) {
	if l.mode != ModeOutput {
		l.pin.Output()
		l.mode = ModeOutput
	}
	l.pin.Set(high)
}

// release hands the line to the sensor.
func (l *line) release() {
	l.pin.Input()
	l.mode = ModeInput
}

func (l *line) level() bool { return l.pin.Get() }
