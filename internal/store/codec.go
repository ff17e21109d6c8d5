package store

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrMalformedSlot is returned by TrackSlot.UnmarshalJSON when a stored slot
// is not a [tracks, timestamp] pair. TrackSlots.UnmarshalJSON treats such a
// slot as absent instead of failing the whole record.
var ErrMalformedSlot = errors.New("malformed track cache slot")

// The wire form of the tiered track cache is a JSON array with one element
// per tier position. A present tier is a 2-element pair
//
//	[[[name, artist, imageURL], ...], "2024-01-02T15:04:05Z"]
//
// and an absent tier is null, so the position of every slot keeps its tier
// meaning. The timestamp travels as RFC 3339 text; everything else is exact.

// MarshalJSON encodes the slot as its wire pair. A timestamp that previously
// failed to parse is written back out as its original text.
func (s *TrackSlot) MarshalJSON() ([]byte, error) {
	triples := make([][3]string, len(s.Tracks))
	for i, t := range s.Tracks {
		triples[i] = [3]string{t.Name, t.Artist, t.ImageURL}
	}

	ts := s.RawFetchedAt
	if !s.FetchedAt.IsZero() {
		ts = s.FetchedAt.Format(time.RFC3339Nano)
	}

	return json.Marshal([2]any{triples, ts})
}

// UnmarshalJSON decodes a wire pair. A timestamp that does not parse is kept
// as raw text rather than rejecting the slot; only a slot that is not a
// 2-element pair at all is an error.
func (s *TrackSlot) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return ErrMalformedSlot
	}
	if len(pair) != 2 {
		return ErrMalformedSlot
	}

	var triples [][3]string
	if err := json.Unmarshal(pair[0], &triples); err != nil {
		return ErrMalformedSlot
	}

	var ts string
	if err := json.Unmarshal(pair[1], &ts); err != nil {
		return ErrMalformedSlot
	}

	tracks := make([]TrackEntry, len(triples))
	for i, t := range triples {
		tracks[i] = TrackEntry{Name: t[0], Artist: t[1], ImageURL: t[2]}
	}

	slot := TrackSlot{Tracks: tracks}
	if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		slot.FetchedAt = parsed
	} else {
		slot.RawFetchedAt = ts
	}

	*s = slot
	return nil
}

// UnmarshalJSON decodes the whole cache, slot by slot. A malformed slot
// becomes an absent tier; it never blocks the tiers around it.
func (s *TrackSlots) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(TrackSlots, len(raw))
	for i, r := range raw {
		if string(r) == "null" {
			continue
		}
		var slot TrackSlot
		if err := slot.UnmarshalJSON(r); err != nil {
			continue
		}
		out[i] = &slot
	}

	*s = out
	return nil
}
