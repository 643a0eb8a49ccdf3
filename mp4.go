// MP4 container support built on the abema/go-mp4 box parser.
//
// Parsing keeps memory bounded by header and track metadata only: the
// moov sample tables are decoded up front, and sample payloads are read
// from mdat on demand, never preloaded.
package transcode

import (
	"fmt"
	"io"
	"sort"

	mp4 "github.com/abema/go-mp4"
	"github.com/sirupsen/logrus"
)

// mp4Sample is one entry of a flattened sample table: everything needed
// to serve a ReadPacket without touching the moov boxes again.
type mp4Sample struct {
	offset int64
	size   uint32
	pts    int64 // start time in the track's own timescale units
	sync   bool
}

// buildSampleTable flattens the per-track stsz/stts/stsc+stco/stss box
// data into one entry per sample. syncSamples is the 1-based stss list;
// nil means every sample is a sync sample.
func buildSampleTable(sizes, deltas []uint32, chunkOffsets []uint64, samplesPerChunk []uint32, syncSamples []uint32) []mp4Sample {
	table := make([]mp4Sample, 0, len(sizes))

	syncSet := make(map[uint32]bool, len(syncSamples))
	for _, n := range syncSamples {
		syncSet[n] = true
	}

	var pts int64
	idx := 0
	for c := 0; c < len(chunkOffsets) && idx < len(sizes); c++ {
		off := int64(chunkOffsets[c])
		var perChunk uint32
		if c < len(samplesPerChunk) {
			perChunk = samplesPerChunk[c]
		}
		for j := uint32(0); j < perChunk && idx < len(sizes); j++ {
			sync := syncSamples == nil || syncSet[uint32(idx)+1]
			var delta uint32
			if idx < len(deltas) {
				delta = deltas[idx]
			}
			table = append(table, mp4Sample{
				offset: off,
				size:   sizes[idx],
				pts:    pts,
				sync:   sync,
			})
			off += int64(sizes[idx])
			pts += int64(delta)
			idx++
		}
	}
	return table
}

// MP4Demuxer reads elementary streams out of an MP4 file. One track is
// active at a time; there is no timestamp-merged multi-track output
// (callers that need interleaving reselect tracks explicitly).
type MP4Demuxer struct {
	src    Source
	meta   Metadata
	tracks []Track // ascending id
	tables map[uint32][]mp4Sample

	selected   uint32 // 0 = no track selected (mp4 track ids are 1-based)
	nextSample uint64
}

var _ Demuxer = (*MP4Demuxer)(nil)

// NewMP4Demuxer parses the box hierarchy of a seekable, length-known
// source. Sources without a known total length are rejected: the format
// needs the length for structural validation.
func NewMP4Demuxer(src Source) (d *MP4Demuxer, err error) {
	if !src.Seekable() || src.Size() < 0 {
		return nil, fmt.Errorf("%w: cannot determine source length, required for MP4 parsing", ErrInvalidInput)
	}

	// The box walker must surface malformed structure as an error, never
	// a panic.
	defer func() {
		if r := recover(); r != nil {
			d, err = nil, fmt.Errorf("%w: %v", ErrContainerParse, r)
		}
	}()

	logrus.WithField("size", src.Size()).Info("opening MP4 source")

	info, err := mp4.Probe(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContainerParse, err)
	}

	sync, langs, err := readTrackBoxes(src)
	if err != nil {
		return nil, err
	}

	d = &MP4Demuxer{
		src:    src,
		tables: make(map[uint32][]mp4Sample, len(info.Tracks)),
	}

	for i, t := range info.Tracks {
		sizes := make([]uint32, len(t.Samples))
		deltas := make([]uint32, len(t.Samples))
		for j, s := range t.Samples {
			sizes[j] = s.Size
			deltas[j] = s.TimeDelta
		}
		chunkOffsets := make([]uint64, len(t.Chunks))
		perChunk := make([]uint32, len(t.Chunks))
		for j, c := range t.Chunks {
			chunkOffsets[j] = uint64(c.DataOffset)
			perChunk[j] = c.SamplesPerChunk
		}

		var syncList []uint32
		if i < len(sync) {
			syncList = sync[i]
		}
		d.tables[t.TrackID] = buildSampleTable(sizes, deltas, chunkOffsets, perChunk, syncList)

		track := Track{
			ID:          t.TrackID,
			Type:        TrackOther,
			SampleCount: uint64(len(t.Samples)),
			Timescale:   t.Timescale,
			Language:    "und",
		}
		if i < len(langs) && langs[i] != "" {
			track.Language = langs[i]
		}
		switch {
		case t.AVC != nil:
			track.Type = TrackVideo
			track.Width = t.AVC.Width
			track.Height = t.AVC.Height
		case t.MP4A != nil:
			track.Type = TrackAudio
			track.Channels = t.MP4A.ChannelCount
			track.ObjectType = t.MP4A.OTI
		}
		d.tracks = append(d.tracks, track)
	}
	sort.Slice(d.tracks, func(i, j int) bool { return d.tracks[i].ID < d.tracks[j].ID })

	d.meta = Metadata{
		StreamCount: len(d.tracks),
		Format:      "MP4",
	}
	if info.Timescale > 0 {
		d.meta.DurationMS = info.Duration * 1000 / uint64(info.Timescale)
		d.meta.HasDuration = true
	}

	logrus.WithFields(logrus.Fields{
		"tracks":      len(d.tracks),
		"duration_ms": d.meta.DurationMS,
	}).Info("MP4 opened")

	return d, nil
}

// readTrackBoxes walks moov once more for the pieces the prober does not
// surface: per-track sync-sample lists (stss) and mdhd language codes.
// Results are indexed by trak appearance order.
func readTrackBoxes(src Source) (sync [][]uint32, langs []string, err error) {
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, nil, fmt.Errorf("seek MP4 source: %w", err)
	}

	trak := -1
	_, err = mp4.ReadBoxStructure(src, func(h *mp4.ReadHandle) (interface{}, error) {
		switch h.BoxInfo.Type {
		case mp4.BoxTypeMoov(), mp4.BoxTypeMdia(), mp4.BoxTypeMinf(), mp4.BoxTypeStbl():
			return h.Expand()
		case mp4.BoxTypeTrak():
			trak++
			sync = append(sync, nil)
			langs = append(langs, "")
			return h.Expand()
		case mp4.BoxTypeStss():
			box, _, err := h.ReadPayload()
			if err != nil {
				return nil, err
			}
			if stss, ok := box.(*mp4.Stss); ok && trak >= 0 {
				sync[trak] = stss.SampleNumber
			}
		case mp4.BoxTypeMdhd():
			box, _, err := h.ReadPayload()
			if err != nil {
				return nil, err
			}
			if mdhd, ok := box.(*mp4.Mdhd); ok && trak >= 0 {
				langs[trak] = mdhdLanguage(mdhd.Language)
			}
		}
		return nil, nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrContainerParse, err)
	}
	return sync, langs, nil
}

// mdhdLanguage decodes the packed 5-bit ISO-639-2/T code from mdhd.
func mdhdLanguage(l [3]byte) string {
	out := make([]byte, 3)
	for i, c := range l {
		if c < 0x60 {
			c += 0x60
		}
		if c < 'a' || c > 'z' {
			return "und"
		}
		out[i] = c
	}
	return string(out)
}

// Metadata reports the container description computed at open time.
func (d *MP4Demuxer) Metadata() Metadata { return d.meta }

// Tracks returns read-only views of all tracks, in ascending id order.
func (d *MP4Demuxer) Tracks() []Track { return d.tracks }

// SelectTrack makes the given track the active stream and resets the
// sample cursor to its first sample. Unknown ids fail with
// ErrInvalidInput.
func (d *MP4Demuxer) SelectTrack(id uint32) error {
	if _, ok := d.tables[id]; !ok {
		return fmt.Errorf("%w: track %d not found", ErrInvalidInput, id)
	}
	d.selected = id
	d.nextSample = 0
	return nil
}

// ReadPacket returns the next sample of the active track. If no track is
// selected, the first track in ascending id order is selected
// automatically. Reaching the end of the active track returns io.EOF and
// clears the selection; the demuxer does not advance to another track on
// its own, the caller must reselect explicitly.
//
// Packet timestamps are in the track's own timescale units, not
// normalized across tracks. DTS is not exposed by this format layer.
func (d *MP4Demuxer) ReadPacket() (*Packet, error) {
	if d.selected == 0 {
		if len(d.tracks) == 0 {
			return nil, io.EOF
		}
		if err := d.SelectTrack(d.tracks[0].ID); err != nil {
			return nil, err
		}
	}

	table := d.tables[d.selected]
	if d.nextSample >= uint64(len(table)) {
		d.selected = 0
		d.nextSample = 0
		return nil, io.EOF
	}
	sample := table[d.nextSample]
	d.nextSample++

	if _, err := d.src.Seek(sample.offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to sample: %w", err)
	}
	data := make([]byte, sample.size)
	if _, err := io.ReadFull(d.src, data); err != nil {
		return nil, fmt.Errorf("%w: short sample read: %v", ErrContainerParse, err)
	}

	return &Packet{
		StreamIndex: int(d.selected),
		Data:        data,
		PTS:         sample.pts,
		DTS:         NoTimestamp,
		Keyframe:    sample.sync,
	}, nil
}

// VideoTracks returns the video tracks in ascending id order.
func (d *MP4Demuxer) VideoTracks() []Track { return d.tracksOfType(TrackVideo) }

// AudioTracks returns the audio tracks in ascending id order.
func (d *MP4Demuxer) AudioTracks() []Track { return d.tracksOfType(TrackAudio) }

func (d *MP4Demuxer) tracksOfType(tt TrackType) []Track {
	var out []Track
	for _, t := range d.tracks {
		if t.Type == tt {
			out = append(out, t)
		}
	}
	return out
}

// SelectVideoTrack selects the first video track.
func (d *MP4Demuxer) SelectVideoTrack() error {
	if tracks := d.VideoTracks(); len(tracks) > 0 {
		return d.SelectTrack(tracks[0].ID)
	}
	return fmt.Errorf("%w: no video tracks found", ErrInvalidInput)
}

// SelectAudioTrack selects the first audio track.
func (d *MP4Demuxer) SelectAudioTrack() error {
	if tracks := d.AudioTracks(); len(tracks) > 0 {
		return d.SelectTrack(tracks[0].ID)
	}
	return fmt.Errorf("%w: no audio tracks found", ErrInvalidInput)
}
