package meta

import (
	"encoding/binary"
	"fmt"
)

// A Picture metadata block stores a picture associated with the stream, most
// commonly cover art from CDs. There may be more than one PICTURE block in a
// stream.
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_picture
type Picture struct {
	// Picture type according to the ID3v2 APIC frame:
	//
	//     0: Other
	//     1: 32x32 pixels 'file icon' (PNG only)
	//     2: Other file icon
	//     3: Cover (front)
	//     4: Cover (back)
	//     5: Leaflet page
	//     6: Media (e.g. label side of CD)
	//     7: Lead artist/lead performer/soloist
	//     8: Artist/performer
	//     9: Conductor
	//    10: Band/Orchestra
	//    11: Composer
	//    12: Lyricist/text writer
	//    13: Recording Location
	//    14: During recording
	//    15: During performance
	//    16: Movie/video screen capture
	//    17: A bright coloured fish
	//    18: Illustration
	//    19: Band/artist logotype
	//    20: Publisher/Studio logotype
	Type uint32
	// MIME type string, in printable ASCII characters 0x20-0x7E. The MIME
	// type may also be "-->" to signify that the data part is a URL of the
	// picture instead of the picture data itself.
	MIME string
	// Description of the picture, in UTF-8.
	Desc string
	// Width of the picture in pixels.
	Width uint32
	// Height of the picture in pixels.
	Height uint32
	// Color depth of the picture in bits-per-pixel.
	ColorDepth uint32
	// For indexed-color pictures (e.g. GIF), the number of colors used, or 0
	// for non-indexed pictures.
	ColorCount uint32
	// Binary picture data.
	Data []byte
}

// parsePicture reads and parses the body of a Picture metadata block.
//
// Picture format (pseudo code):
//
//	type METADATA_BLOCK_PICTURE struct {
//	   type        uint32
//	   mime_length uint32
//	   mime_string [mime_length]byte
//	   desc_length uint32
//	   desc_string [desc_length]byte
//	   width       uint32
//	   height      uint32
//	   color_depth uint32
//	   color_count uint32
//	   data_length uint32
//	   data        [data_length]byte
//	}
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_picture
func (block *Block) parsePicture() error {
	// Picture type (size: 4 bytes).
	pic := new(Picture)
	block.Body = pic
	if err := binary.Read(block.lr, binary.BigEndian, &pic.Type); err != nil {
		return unexpected(err)
	}
	if pic.Type > 20 {
		return fmt.Errorf("meta.Block.parsePicture: reserved picture type %d", pic.Type)
	}

	// MIME type length (size: 4 bytes) and MIME type string.
	var mimeLen uint32
	if err := binary.Read(block.lr, binary.BigEndian, &mimeLen); err != nil {
		return unexpected(err)
	}
	buf, err := readBytes(block.lr, int(mimeLen))
	if err != nil {
		return err
	}
	pic.MIME = string(buf)
	for _, r := range pic.MIME {
		if r < 0x20 || r > 0x7E {
			return fmt.Errorf("meta.Block.parsePicture: invalid character in MIME type; expected >= 0x20 and <= 0x7E, got 0x%02X", r)
		}
	}

	// Description length (size: 4 bytes) and description string.
	var descLen uint32
	if err := binary.Read(block.lr, binary.BigEndian, &descLen); err != nil {
		return unexpected(err)
	}
	buf, err = readBytes(block.lr, int(descLen))
	if err != nil {
		return err
	}
	pic.Desc = string(buf)

	// Width, height, color depth and color count (size: 4 bytes each).
	fields := []*uint32{&pic.Width, &pic.Height, &pic.ColorDepth, &pic.ColorCount}
	for _, field := range fields {
		if err := binary.Read(block.lr, binary.BigEndian, field); err != nil {
			return unexpected(err)
		}
	}

	// Data length (size: 4 bytes) and data.
	var dataLen uint32
	if err := binary.Read(block.lr, binary.BigEndian, &dataLen); err != nil {
		return unexpected(err)
	}
	pic.Data, err = readBytes(block.lr, int(dataLen))
	return err
}
