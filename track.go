package transcode

// TrackType is the coarse classification of a container track.
type TrackType int

const (
	TrackOther TrackType = iota
	TrackVideo
	TrackAudio
)

func (t TrackType) String() string {
	switch t {
	case TrackVideo:
		return "video"
	case TrackAudio:
		return "audio"
	default:
		return "other"
	}
}

// Track is a read-only view of one container track, derived from parsed
// headers at open time and never mutated afterwards.
type Track struct {
	ID          uint32
	Type        TrackType
	SampleCount uint64
	Timescale   uint32 // units per second for this track's timestamps
	Language    string // ISO-639-2/T code, "und" if undetermined

	// Video tracks only.
	Width  uint16
	Height uint16

	// Audio tracks only.
	Channels   uint16
	ObjectType uint8 // audio object type from the sample description
}
