package types

// ------------------------
// Temperature & humidity
// ------------------------

type TemperatureInfo struct {
	Sensor string `json:"sensor"` // "dht11"
	Pin    int    `json:"pin"`    // data line
	Unit   string `json:"unit"`   // "C"
}

type HumidityInfo struct {
	Sensor string `json:"sensor"`
	Pin    int    `json:"pin"`
	Unit   string `json:"unit"` // "%RH"
}

type TemperatureValue struct {
	// Tenths of °C (e.g. 210 => 21.0°C). The DHT11 resolves whole degrees.
	DeciC int16 `json:"deci_c"`
}

type HumidityValue struct {
	// Hundredths of %RH (0..10000 for 0..100.00%).
	RHx100 uint16 `json:"rh_x100"`
}

// DHT11Frame is the reply to control/last_frame: the last good raw frame,
// including the fractional bytes the sensor always reports as zero.
type DHT11Frame struct {
	Bytes [5]byte `json:"bytes"`
	TS    int64   `json:"ts_ms"`
}
