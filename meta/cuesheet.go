package meta

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// errReserved is returned when a reserved bit or byte of a cue sheet is
// non-zero.
var errReserved = errors.New("meta.Block.parseCueSheet: all reserved bits must be 0")

// A CueSheet metadata block stores various information for use in a cue
// sheet. It supports track and index points, compatible with Red Book CD
// digital audio discs, as well as other CD-DA metadata such as media catalog
// number and track ISRCs. The CUESHEET block is especially useful for backing
// up CD-DA discs, but it can be used as a general purpose cueing mechanism
// for playback.
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_cuesheet
type CueSheet struct {
	// Media catalog number, in ASCII printable characters 0x20-0x7E. For
	// CD-DA this is a thirteen digit number.
	MCN string
	// Number of lead-in samples. This field only has meaning for CD-DA cue
	// sheets; for other uses it should be 0.
	NLeadInSamples uint64
	// Specifies whether the cue sheet corresponds to a Compact Disc.
	IsCompactDisc bool
	// One or more tracks. The last track of a cue sheet is always the
	// lead-out track.
	Tracks []CueSheetTrack
}

// A CueSheetTrack contains information about a track within a cue sheet.
type CueSheetTrack struct {
	// Track offset in samples, relative to the beginning of the FLAC audio
	// stream. For CD-DA the offset must be evenly divisible by 588 samples
	// (588 samples = 44100 samples/sec * 1/75th of a sec).
	Offset uint64
	// Track number; never 0, which is reserved by CD-DA for the lead-in. For
	// CD-DA the number must be 1-99, or 170 for the lead-out track. For
	// non-CD-DA the lead-out track number must be 255.
	Num uint8
	// Track ISRC; a 12-digit alphanumeric code, or empty when absent.
	ISRC string
	// Specifies whether the track contains audio or data.
	IsAudio bool
	// Specifies whether the track has pre-emphasis. This corresponds to the
	// CD-DA Q-channel control bit 5.
	HasPreEmphasis bool
	// Every track has one or more track index points, except for the
	// lead-out track which has zero.
	Indicies []CueSheetTrackIndex
}

// A CueSheetTrackIndex contains information about an index point in a track.
type CueSheetTrackIndex struct {
	// Offset in samples of the index point, relative to the track offset.
	// For CD-DA the offset must be evenly divisible by 588 samples.
	Offset uint64
	// Index point number; subsequent index numbers within a track increase
	// by 1. The first index of a track has number 0 or 1, where 0
	// corresponds to the track pre-gap for CD-DA.
	Num uint8
}

// parseCueSheet reads and parses the body of a CueSheet metadata block.
//
// Cue sheet format (pseudo code):
//
//	type METADATA_BLOCK_CUESHEET struct {
//	   mcn              [128]byte
//	   nlead_in_samples uint64
//	   is_compact_disc  bool
//	   _                uint7
//	   _                [258]byte
//	   ntracks          uint8
//	   tracks           [ntracks]track
//	}
//
//	type track struct {
//	   offset           uint64
//	   num              uint8
//	   isrc             [12]byte
//	   is_audio         bool
//	   has_pre_emphasis bool
//	   _                uint6
//	   _                [13]byte
//	   nindicies        uint8
//	   indicies         [nindicies]index
//	}
//
//	type index struct {
//	   offset uint64
//	   num    uint8
//	   _      [3]byte
//	}
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_cuesheet
func (block *Block) parseCueSheet() error {
	// Media catalog number (size: 128 bytes); right-padded with NUL.
	buf, err := readBytes(block.lr, 128)
	if err != nil {
		return err
	}
	cs := new(CueSheet)
	block.Body = cs
	cs.MCN = stringFromSZ(buf)
	for _, r := range cs.MCN {
		if r < 0x20 || r > 0x7E {
			return fmt.Errorf("meta.Block.parseCueSheet: invalid character in media catalog number; expected >= 0x20 and <= 0x7E, got 0x%02X", r)
		}
	}

	// Lead-in sample count (size: 8 bytes).
	if err := binary.Read(block.lr, binary.BigEndian, &cs.NLeadInSamples); err != nil {
		return unexpected(err)
	}

	// Is compact disc (1 bit) and reserved (7 bits).
	b, err := readByte(block.lr)
	if err != nil {
		return err
	}
	cs.IsCompactDisc = b&0x80 != 0
	if b&0x7F != 0 {
		return errReserved
	}
	if !cs.IsCompactDisc && cs.NLeadInSamples != 0 {
		return fmt.Errorf("meta.Block.parseCueSheet: invalid lead-in sample count for non CD-DA; expected 0, got %d", cs.NLeadInSamples)
	}

	// Reserved (size: 258 bytes).
	buf, err = readBytes(block.lr, 258)
	if err != nil {
		return err
	}
	if !isAllZero(buf) {
		return errReserved
	}

	// Track count (size: 1 byte).
	ntracks, err := readByte(block.lr)
	if err != nil {
		return err
	}
	if ntracks < 1 {
		return errors.New("meta.Block.parseCueSheet: at least one track (the lead-out track) is required")
	}
	if cs.IsCompactDisc && ntracks > 100 {
		return fmt.Errorf("meta.Block.parseCueSheet: too many tracks for CD-DA cue sheet; expected <= 100, got %d", ntracks)
	}

	cs.Tracks = make([]CueSheetTrack, ntracks)
	for i := range cs.Tracks {
		track := &cs.Tracks[i]
		isLeadOut := i == len(cs.Tracks)-1

		// Track offset (size: 8 bytes).
		if err := binary.Read(block.lr, binary.BigEndian, &track.Offset); err != nil {
			return unexpected(err)
		}
		if cs.IsCompactDisc && track.Offset%588 != 0 {
			return fmt.Errorf("meta.Block.parseCueSheet: invalid track offset (%d) for CD-DA; must be evenly divisible by 588", track.Offset)
		}

		// Track number (size: 1 byte).
		track.Num, err = readByte(block.lr)
		if err != nil {
			return err
		}
		if track.Num == 0 {
			// Track number 0 is reserved by CD-DA for the lead-in.
			return errors.New("meta.Block.parseCueSheet: track number 0 not allowed")
		}
		if cs.IsCompactDisc {
			if isLeadOut {
				if track.Num != 170 {
					return fmt.Errorf("meta.Block.parseCueSheet: invalid lead-out track number for CD-DA; expected 170, got %d", track.Num)
				}
			} else if track.Num > 99 {
				return fmt.Errorf("meta.Block.parseCueSheet: invalid track number for CD-DA; expected <= 99, got %d", track.Num)
			}
		} else if isLeadOut && track.Num != 255 {
			return fmt.Errorf("meta.Block.parseCueSheet: invalid lead-out track number for non CD-DA; expected 255, got %d", track.Num)
		}

		// Track ISRC (size: 12 bytes); all NUL when absent.
		buf, err = readBytes(block.lr, 12)
		if err != nil {
			return err
		}
		track.ISRC = stringFromSZ(buf)

		// Is audio (1 bit), has pre-emphasis (1 bit) and reserved (6 bits).
		b, err = readByte(block.lr)
		if err != nil {
			return err
		}
		// Track type; 0 for audio, 1 for non-audio.
		track.IsAudio = b&0x80 == 0
		track.HasPreEmphasis = b&0x40 != 0
		if b&0x3F != 0 {
			return errReserved
		}

		// Reserved (size: 13 bytes).
		buf, err = readBytes(block.lr, 13)
		if err != nil {
			return err
		}
		if !isAllZero(buf) {
			return errReserved
		}

		// Track index point count (size: 1 byte).
		nindicies, err := readByte(block.lr)
		if err != nil {
			return err
		}
		if isLeadOut {
			if nindicies != 0 {
				return fmt.Errorf("meta.Block.parseCueSheet: invalid number of track index points for the lead-out track; expected 0, got %d", nindicies)
			}
			continue
		}
		if nindicies < 1 {
			return fmt.Errorf("meta.Block.parseCueSheet: invalid number of track index points; expected >= 1, got %d", nindicies)
		}
		if cs.IsCompactDisc && nindicies > 100 {
			return fmt.Errorf("meta.Block.parseCueSheet: invalid number of track index points for CD-DA; expected <= 100, got %d", nindicies)
		}

		track.Indicies = make([]CueSheetTrackIndex, nindicies)
		for j := range track.Indicies {
			index := &track.Indicies[j]

			// Track index point offset (size: 8 bytes).
			if err := binary.Read(block.lr, binary.BigEndian, &index.Offset); err != nil {
				return unexpected(err)
			}

			// Track index point number (size: 1 byte).
			index.Num, err = readByte(block.lr)
			if err != nil {
				return err
			}

			// Reserved (size: 3 bytes).
			buf, err = readBytes(block.lr, 3)
			if err != nil {
				return err
			}
			if !isAllZero(buf) {
				return errReserved
			}
		}
	}
	return nil
}

// stringFromSZ converts the provided byte slice to a string, terminated at
// the first occurrence of a NUL character.
func stringFromSZ(buf []byte) string {
	pos := bytes.IndexByte(buf, 0)
	if pos != -1 {
		buf = buf[:pos]
	}
	return string(buf)
}
