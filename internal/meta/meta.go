package meta

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"path/filepath"
	"strings"
	"time"

	"github.com/1F47E/go-monoreel/internal/bits"
	cfg "github.com/1F47E/go-monoreel/internal/config"
	"github.com/1F47E/go-monoreel/internal/logger"
)

var (
	// ErrCorruptHeader is returned when the header record cannot be parsed.
	ErrCorruptHeader = errors.New("corrupt header")

	// ErrHeaderTooLarge is returned when the header does not fit into a single frame.
	ErrHeaderTooLarge = errors.New("header does not fit into a frame")
)

// header layout, big endian, SizeMetadata bytes total
//
//	0   magic       4
//	4   version     1
//	5   name len    1
//	8   length      8  original payload length in bytes
//	16  capacity    8  bits per frame
//	24  width       4
//	28  height      4
//	32  frames      8  payload frames count
//	40  checksum    8  fnv64a of the payload
//	48  timestamp   8
//	56  filename    MetadataMaxFilenameLen
//	248 self sum    8  fnv64a of bytes [0:248]
const (
	offMagic     = 0
	offVersion   = 4
	offNameLen   = 5
	offLength    = 8
	offCapacity  = 16
	offWidth     = 24
	offHeight    = 28
	offFrames    = 32
	offChecksum  = 40
	offTimestamp = 48
	offFilename  = 56
	offSelfSum   = cfg.SizeMetadata - 8
)

type Header struct {
	OriginalLength uint64
	FrameCapacity  uint64
	Width          uint32
	Height         uint32
	FrameCount     uint64
	Checksum       uint64
	Timestamp      int64
	Filename       string
}

func New(payload []byte, capacity int) Header {
	length := uint64(len(payload))
	return Header{
		OriginalLength: length,
		FrameCapacity:  uint64(capacity),
		FrameCount:     FramesFor(length, uint64(capacity)),
		Checksum:       generateChecksum(payload),
		Timestamp:      time.Now().Unix(),
	}
}

// SetGeometry records the frame size, it must match the capacity
func (h *Header) SetGeometry(width, height int) {
	h.Width = uint32(width)
	h.Height = uint32(height)
}

// FramesFor returns how many frames of capacity bits hold length bytes.
func FramesFor(length, capacity uint64) uint64 {
	if length == 0 {
		return 0
	}
	total := length * 8
	return (total + capacity - 1) / capacity
}

func (h *Header) SetFilename(path string) {
	h.Filename = encodeFilename(path)
}

func (h Header) IsZero() bool {
	return h.FrameCapacity == 0
}

func (h Header) Print() string {
	return fmt.Sprintf("Filename: %s, Size: %d bytes, Frames: %d (%dx%d), Timestamp: %d (%s)",
		h.Filename, h.OriginalLength, h.FrameCount, h.Width, h.Height, h.Timestamp, h.FormatDatetime())
}

func (h Header) FormatDatetime() string {
	t := time.Unix(h.Timestamp, 0)
	localTime := t.Local()
	return localTime.Format(time.RFC822)
}

// Validate checks the decoded payload against the recorded checksum
func (h Header) Validate(payload []byte) bool {
	return generateChecksum(payload) == h.Checksum
}

func (h Header) Marshal() []byte {
	header := make([]byte, cfg.SizeMetadata)
	copy(header[offMagic:], cfg.MetadataMagic)
	header[offVersion] = cfg.MetadataVersion
	name := h.Filename
	if len(name) > cfg.MetadataMaxFilenameLen {
		name = encodeFilename(name)
	}
	header[offNameLen] = byte(len(name))
	binary.BigEndian.PutUint64(header[offLength:], h.OriginalLength)
	binary.BigEndian.PutUint64(header[offCapacity:], h.FrameCapacity)
	binary.BigEndian.PutUint32(header[offWidth:], h.Width)
	binary.BigEndian.PutUint32(header[offHeight:], h.Height)
	binary.BigEndian.PutUint64(header[offFrames:], h.FrameCount)
	binary.BigEndian.PutUint64(header[offChecksum:], h.Checksum)
	binary.BigEndian.PutUint64(header[offTimestamp:], uint64(h.Timestamp))
	copy(header[offFilename:offSelfSum], name)
	copy(header[offSelfSum:], convertUint64ToBytes(generateChecksum(header[:offSelfSum])))
	return header
}

// METADATA parsing
func Parse(header []byte) (Header, error) {
	log := logger.Log.WithField("scope", "meta parser")
	log.Debug("Header len: ", len(header))

	if len(header) < cfg.SizeMetadata {
		return Header{}, fmt.Errorf("%w: got %d bytes, want %d", ErrCorruptHeader, len(header), cfg.SizeMetadata)
	}
	header = header[:cfg.SizeMetadata]
	if string(header[offMagic:offMagic+len(cfg.MetadataMagic)]) != cfg.MetadataMagic {
		return Header{}, fmt.Errorf("%w: bad magic %q", ErrCorruptHeader, header[offMagic:offMagic+len(cfg.MetadataMagic)])
	}
	if header[offVersion] != cfg.MetadataVersion {
		return Header{}, fmt.Errorf("%w: unsupported version %d", ErrCorruptHeader, header[offVersion])
	}
	sum := binary.BigEndian.Uint64(header[offSelfSum:])
	if sum != generateChecksum(header[:offSelfSum]) {
		return Header{}, fmt.Errorf("%w: header checksum mismatch", ErrCorruptHeader)
	}
	nameLen := int(header[offNameLen])
	if nameLen > cfg.MetadataMaxFilenameLen {
		return Header{}, fmt.Errorf("%w: filename length %d", ErrCorruptHeader, nameLen)
	}

	h := Header{
		OriginalLength: binary.BigEndian.Uint64(header[offLength:]),
		FrameCapacity:  binary.BigEndian.Uint64(header[offCapacity:]),
		Width:          binary.BigEndian.Uint32(header[offWidth:]),
		Height:         binary.BigEndian.Uint32(header[offHeight:]),
		FrameCount:     binary.BigEndian.Uint64(header[offFrames:]),
		Checksum:       binary.BigEndian.Uint64(header[offChecksum:]),
		Timestamp:      int64(binary.BigEndian.Uint64(header[offTimestamp:])),
		Filename:       string(header[offFilename : offFilename+nameLen]),
	}
	if h.FrameCapacity == 0 || h.FrameCapacity != uint64(h.Width)*uint64(h.Height) {
		return Header{}, fmt.Errorf("%w: capacity %d does not match %dx%d", ErrCorruptHeader, h.FrameCapacity, h.Width, h.Height)
	}
	if h.FrameCount != FramesFor(h.OriginalLength, h.FrameCapacity) {
		return Header{}, fmt.Errorf("%w: %d frames cannot hold %d bytes", ErrCorruptHeader, h.FrameCount, h.OriginalLength)
	}
	log.Debugf("Parsed: %s", h.Print())
	return h, nil
}

// Bits returns the header record padded to a whole frame of capacity bits
func (h Header) Bits(capacity int) ([]bool, error) {
	if capacity < cfg.SizeMetadata*8 {
		return nil, fmt.Errorf("%w: need %d bits, frame holds %d", ErrHeaderTooLarge, cfg.SizeMetadata*8, capacity)
	}
	frame := make([]bool, capacity)
	copy(frame, bits.BytesToBits(h.Marshal()))
	return frame, nil
}

// ParseBits reads the header back from a decoded header frame
func ParseBits(frame []bool) (Header, error) {
	if len(frame) < cfg.SizeMetadata*8 {
		return Header{}, fmt.Errorf("%w: need %d bits, frame holds %d", ErrHeaderTooLarge, cfg.SizeMetadata*8, len(frame))
	}
	raw, err := bits.BitsToBytes(frame[:cfg.SizeMetadata*8])
	if err != nil {
		return Header{}, err
	}
	return Parse(raw)
}

func generateChecksum(bytes []byte) uint64 {
	hasher := fnv.New64a()
	// hash.Hash never returns an error on Write
	_, _ = hasher.Write(bytes)
	return hasher.Sum64()
}

func convertUint64ToBytes(num uint64) []byte {
	byteArray := make([]byte, 8)
	binary.BigEndian.PutUint64(byteArray, num)
	return byteArray
}

func encodeFilename(path string) string {
	filename := filepath.Base(path)
	if filename == "." || filename == string(filepath.Separator) {
		return ""
	}
	if len(filename) > cfg.MetadataMaxFilenameLen {
		ext := filepath.Ext(filename) // with a dot
		if len(ext) > cfg.MetadataMaxFilenameLen/2 {
			ext = ""
		}
		maxLen := cfg.MetadataMaxFilenameLen - len(ext) - len(cfg.MetadataFilenameCutDelimeter)
		filename = filename[:maxLen] + cfg.MetadataFilenameCutDelimeter + ext
	}
	return strings.ToValidUTF8(filename, "_")
}
