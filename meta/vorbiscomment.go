package meta

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// A VorbisComment metadata block stores a list of human-readable name/value
// pairs, with values encoded in UTF-8. It is an implementation of the Vorbis
// comment specification, without the framing bit. This is the only
// officially supported tagging mechanism in FLAC. In some external
// documentation Vorbis comments are called FLAC tags, to lessen confusion.
type VorbisComment struct {
	// Vendor string.
	Vendor string
	// A list of tags, each in name/value pair form.
	Tags [][2]string
}

// parseVorbisComment reads and parses the body of a VorbisComment metadata
// block.
//
// Vorbis comment format (pseudo code):
//
//	type METADATA_BLOCK_VORBIS_COMMENT struct {
//	   vendor_length uint32
//	   vendor_string [vendor_length]byte
//	   tag_count     uint32
//	   tags          [tag_count]tag
//	}
//
//	type tag struct {
//	   vector_length uint32
//	   // vector_string is a name/value pair. Example: "NAME=value".
//	   vector_string [vector_length]byte
//	}
//
// Note that the integer fields are little-endian, as inherited from the
// Vorbis specification, while the rest of FLAC is big-endian.
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_vorbis_comment
func (block *Block) parseVorbisComment() error {
	// Vendor length (size: 4 bytes).
	var vendorLen uint32
	if err := binary.Read(block.lr, binary.LittleEndian, &vendorLen); err != nil {
		return unexpected(err)
	}

	// Vendor string.
	buf, err := readBytes(block.lr, int(vendorLen))
	if err != nil {
		return err
	}
	comment := &VorbisComment{Vendor: string(buf)}
	block.Body = comment

	// Tag count (size: 4 bytes).
	var tagCount uint32
	if err := binary.Read(block.lr, binary.LittleEndian, &tagCount); err != nil {
		return unexpected(err)
	}
	if tagCount == 0 {
		return nil
	}
	comment.Tags = make([][2]string, tagCount)
	for i := range comment.Tags {
		// Vector length (size: 4 bytes).
		var vectorLen uint32
		if err := binary.Read(block.lr, binary.LittleEndian, &vectorLen); err != nil {
			return unexpected(err)
		}

		// Vector string.
		buf, err := readBytes(block.lr, int(vectorLen))
		if err != nil {
			return err
		}
		vector := string(buf)
		pos := strings.Index(vector, "=")
		if pos == -1 {
			return fmt.Errorf("meta.Block.parseVorbisComment: invalid tag vector; no '=' present in %q", vector)
		}
		comment.Tags[i][0] = vector[:pos]
		comment.Tags[i][1] = vector[pos+1:]
	}
	return nil
}
