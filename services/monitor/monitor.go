// Package monitor renders HAL readings and capability state as text lines
// for a console or UART.
package monitor

import (
	"context"
	"io"
	"time"

	"dht11-go/bus"
	"dht11-go/types"
	"dht11-go/x/conv"
	"dht11-go/x/jsonx"
)

var (
	topicValues = bus.T("hal", "capability", bus.SingleWild, bus.SingleWild, "value")
	topicStates = bus.T("hal", "capability", bus.SingleWild, bus.SingleWild, "state")
	topicConfig = bus.T("config", "monitor")
)

// Config is read from config/monitor.
type Config struct {
	// IntervalMs between summary lines; 0 writes each reading as its
	// humidity value completes the pair.
	IntervalMs uint32 `json:"interval_ms"`
}

type Service struct {
	out io.Writer

	temp map[int]types.TemperatureValue
	hum  map[int]types.HumidityValue
	// ids with a temperature not yet paired with a humidity value
	fresh map[int]bool
	buf   [96]byte
}

func New(out io.Writer) *Service {
	return &Service{
		out:  out,
		temp:  map[int]types.TemperatureValue{},
		hum:   map[int]types.HumidityValue{},
		fresh: map[int]bool{},
	}
}

// Start runs the monitor until ctx is cancelled.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) {
	go s.loop(ctx, conn)
}

func (s *Service) loop(ctx context.Context, conn *bus.Connection) {
	vals := conn.Subscribe(topicValues)
	states := conn.Subscribe(topicStates)
	cfgSub := conn.Subscribe(topicConfig)
	defer conn.Unsubscribe(vals)
	defer conn.Unsubscribe(states)
	defer conn.Unsubscribe(cfgSub)

	tick := time.NewTicker(time.Hour)
	tick.Stop()
	defer tick.Stop()
	var interval time.Duration

	for {
		select {
		case <-ctx.Done():
			return
		case m := <-cfgSub.Channel():
			var c Config
			if err := jsonx.Decode(m.Payload, &c); err != nil {
				continue
			}
			interval = time.Duration(c.IntervalMs) * time.Millisecond
			if interval > 0 {
				tick.Reset(interval)
			} else {
				tick.Stop()
			}
		case m := <-vals.Channel():
			id, _ := m.Topic.At(3).(int)
			// The HAL publishes temperature then humidity for each sample.
			switch v := m.Payload.(type) {
			case types.TemperatureValue:
				s.temp[id] = v
				s.fresh[id] = true
			case types.HumidityValue:
				s.hum[id] = v
				if interval == 0 && s.fresh[id] {
					s.write(Reading(s.buf[:0], id, s.temp[id], v))
				}
				s.fresh[id] = false
			}
		case m := <-states.Channel():
			st, ok := m.Payload.(types.CapabilityState)
			if !ok || st.Link == types.LinkUp {
				continue
			}
			kind, _ := m.Topic.At(2).(string)
			id, _ := m.Topic.At(3).(int)
			s.write(State(s.buf[:0], kind, id, st))
		case <-tick.C:
			for id, t := range s.temp {
				if h, ok := s.hum[id]; ok {
					s.write(Reading(s.buf[:0], id, t, h))
				}
			}
		}
	}
}

func (s *Service) write(line []byte) {
	if s.out != nil {
		_, _ = s.out.Write(line)
	}
}

// Reading appends "dht<id> t=21.0C rh=50.00%\n" to dst.
func Reading(dst []byte, id int, t types.TemperatureValue, h types.HumidityValue) []byte {
	var num [24]byte
	dst = append(dst, "dht"...)
	dst = append(dst, conv.Itoa(num[:], int64(id))...)
	dst = append(dst, " t="...)
	dst = append(dst, conv.Fixed(num[:], int64(t.DeciC), 1)...)
	dst = append(dst, "C rh="...)
	dst = append(dst, conv.Fixed(num[:], int64(h.RHx100), 2)...)
	return append(dst, "%\n"...)
}

// State appends "<kind>/<id> <link> <error>\n" to dst.
func State(dst []byte, kind string, id int, st types.CapabilityState) []byte {
	var num [24]byte
	dst = append(dst, kind...)
	dst = append(dst, '/')
	dst = append(dst, conv.Itoa(num[:], int64(id))...)
	dst = append(dst, ' ')
	dst = append(dst, string(st.Link)...)
	if st.Error != "" {
		dst = append(dst, ' ')
		dst = append(dst, st.Error...)
	}
	return append(dst, '\n')
}

// Frame appends the raw frame bytes in hex, e.g. "frame 32 00 15 00 47\n".
func Frame(dst []byte, f types.DHT11Frame) []byte {
	var hex [16]byte
	dst = append(dst, "frame "...)
	dst = append(dst, conv.HexBytes(hex[:], f.Bytes[:], ' ')...)
	return append(dst, '\n')
}
