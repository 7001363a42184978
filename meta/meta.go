// Package meta contains functions for parsing FLAC metadata.
package meta

import (
	"errors"
	"fmt"
	"io"
	"io/ioutil"

	"github.com/eaburns/bit"
)

// A Block is a metadata block, consisting of a block header and a block body.
type Block struct {
	// Metadata block header.
	Header
	// Metadata block body of type *StreamInfo, *Application, *SeekTable,
	// *VorbisComment, *CueSheet or *Picture. Body is nil for padding and
	// skipped blocks.
	Body interface{}
	// Underlying reader, limited to the length of the block body.
	lr io.Reader
}

// New reads and parses the header of a metadata block from the provided
// io.Reader and returns a handle to the block. Call Block.Parse to parse the
// metadata block body and Block.Skip to ignore it.
func New(r io.Reader) (block *Block, err error) {
	block = new(Block)
	if err = block.parseHeader(r); err != nil {
		return nil, err
	}
	block.lr = io.LimitReader(r, block.Length)
	return block, nil
}

// Parse reads and parses the header and body of a metadata block. Use New
// for more granularity.
func Parse(r io.Reader) (block *Block, err error) {
	block, err = New(r)
	if err != nil {
		return nil, err
	}
	if err = block.Parse(); err != nil {
		return nil, err
	}
	return block, nil
}

// Parse reads and parses the metadata block body.
func (block *Block) Parse() (err error) {
	switch block.Type {
	case TypeStreamInfo:
		err = block.parseStreamInfo()
	case TypePadding:
		err = block.verifyPadding()
	case TypeApplication:
		err = block.parseApplication()
	case TypeSeekTable:
		err = block.parseSeekTable()
	case TypeVorbisComment:
		err = block.parseVorbisComment()
	case TypeCueSheet:
		err = block.parseCueSheet()
	case TypePicture:
		err = block.parsePicture()
	default:
		return fmt.Errorf("meta.Block.Parse: block type %d not yet supported", block.Type)
	}
	if err != nil {
		return err
	}
	// Ignore any unread bytes of the block body, so that the underlying
	// reader is positioned at the start of the next block.
	return block.Skip()
}

// Skip ignores the remaining contents of the metadata block body.
func (block *Block) Skip() (err error) {
	_, err = io.Copy(ioutil.Discard, block.lr)
	return err
}

// A Header contains type and length information about a metadata block.
type Header struct {
	// Metadata block body type.
	Type Type
	// Length of the metadata block body in bytes.
	Length int64
	// IsLast specifies whether the block is the last metadata block before
	// the audio frames.
	IsLast bool
}

// parseHeader reads and parses the header of a metadata block.
//
// Block header format (pseudo code):
//
//	type METADATA_BLOCK_HEADER struct {
//	   is_last    bool
//	   block_type uint7
//	   length     uint24
//	}
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_header
func (block *Block) parseHeader(r io.Reader) error {
	br := bit.NewReader(r)
	// is_last:    1 bit
	// block_type: 7 bits
	// length:     24 bits
	fields, err := br.ReadFields(1, 7, 24)
	if err != nil {
		return err
	}
	block.IsLast = fields[0] != 0
	block.Type = Type(fields[1])
	block.Length = int64(fields[2])

	switch {
	case block.Type >= 7 && block.Type <= 126:
		return fmt.Errorf("meta.Block.parseHeader: reserved block type %d", block.Type)
	case block.Type == TypeInvalid:
		return errors.New("meta.Block.parseHeader: invalid block type; confusable with a frame sync code")
	}
	return nil
}

// Type is used to identify the metadata block type.
type Type uint8

// Metadata block body types.
const (
	TypeStreamInfo    Type = 0
	TypePadding       Type = 1
	TypeApplication   Type = 2
	TypeSeekTable     Type = 3
	TypeVorbisComment Type = 4
	TypeCueSheet      Type = 5
	TypePicture       Type = 6

	// TypeInvalid is forbidden, to avoid confusion with a frame sync code.
	TypeInvalid Type = 127
)

// typeName is a map from Type to name.
var typeName = map[Type]string{
	TypeStreamInfo:    "stream info",
	TypePadding:       "padding",
	TypeApplication:   "application",
	TypeSeekTable:     "seek table",
	TypeVorbisComment: "vorbis comment",
	TypeCueSheet:      "cue sheet",
	TypePicture:       "picture",
}

func (t Type) String() string {
	if name, ok := typeName[t]; ok {
		return name
	}
	return fmt.Sprintf("<unknown block type %d>", uint8(t))
}
