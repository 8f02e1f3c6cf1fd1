package model

// Band is a frequency range in hertz, exclusive at both ends for
// compatibility checks.
type Band struct {
	MinHz float64
	MaxHz float64
}

// Contains reports whether freq lies strictly inside the band.
func (b Band) Contains(freqHz float64) bool {
	return b.MinHz < freqHz && freqHz < b.MaxHz
}

// GroundStationChannel describes one configurable receive/transmit chain of a
// ground station. The catalog values (modulations, bitrates, ...) are
// maintained by an external RF configuration service; here they are plain
// value lists.
type GroundStationChannel struct {
	ID              string
	GroundStationID string

	Band          Band
	Modulations   []string
	BitratesBps   []int64
	BandwidthsHz  []float64
	Polarizations []string

	Enabled bool
}

// SpacecraftChannel describes one radio of a spacecraft. Unlike the ground
// side, a spacecraft channel has a single fixed parameter set.
type SpacecraftChannel struct {
	ID           string
	SpacecraftID string

	FrequencyHz  float64
	Modulation   string
	BitrateBps   int64
	BandwidthHz  float64
	Polarization string

	Enabled bool
}

// ChannelCompatibility records that a spacecraft channel and a ground-station
// channel can close an RF link. The segment IDs are denormalised so slot
// generation can resolve geometry without extra lookups.
type ChannelCompatibility struct {
	ID string

	SpacecraftID        string
	SpacecraftChannelID string

	GroundStationID        string
	GroundStationChannelID string
}

// PairKey identifies the (spacecraft channel, ground-station channel) pair
// independent of the row ID.
func (c ChannelCompatibility) PairKey() string {
	return c.SpacecraftChannelID + "/" + c.GroundStationChannelID
}
