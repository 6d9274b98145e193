package dispatch

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"

	"golang.org/x/image/bmp"
)

const (
	icoHeaderLen = 6
	icoEntryLen  = 16
	bmpHeaderLen = 14
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

func init() {
	image.RegisterFormat("ico", "\x00\x00\x01\x00", decodeICO, decodeICOConfig)
}

type icoEntry struct {
	width, height int
	bitCount      int
	size, offset  uint32
}

// decodeICO decodes the largest image in an icon file. Entries may hold
// either a PNG stream or a headerless DIB.
func decodeICO(r io.Reader) (image.Image, error) {
	payload, err := largestICOPayload(r)
	if err != nil {
		return nil, err
	}
	if bytes.HasPrefix(payload, pngSignature) {
		return png.Decode(bytes.NewReader(payload))
	}
	file, err := dibToBMP(payload)
	if err != nil {
		return nil, err
	}
	return bmp.Decode(bytes.NewReader(file))
}

func decodeICOConfig(r io.Reader) (image.Config, error) {
	payload, err := largestICOPayload(r)
	if err != nil {
		return image.Config{}, err
	}
	if bytes.HasPrefix(payload, pngSignature) {
		return png.DecodeConfig(bytes.NewReader(payload))
	}
	file, err := dibToBMP(payload)
	if err != nil {
		return image.Config{}, err
	}
	return bmp.DecodeConfig(bytes.NewReader(file))
}

func largestICOPayload(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) < icoHeaderLen {
		return nil, errors.New("ico: short header")
	}
	if binary.LittleEndian.Uint16(data[2:]) != 1 {
		return nil, errors.New("ico: not an icon resource")
	}
	count := int(binary.LittleEndian.Uint16(data[4:]))
	if count == 0 || len(data) < icoHeaderLen+count*icoEntryLen {
		return nil, errors.New("ico: truncated directory")
	}

	var best icoEntry
	found := false
	for i := range count {
		raw := data[icoHeaderLen+i*icoEntryLen:]
		e := icoEntry{
			width:    icoDimension(raw[0]),
			height:   icoDimension(raw[1]),
			bitCount: int(binary.LittleEndian.Uint16(raw[6:])),
			size:     binary.LittleEndian.Uint32(raw[8:]),
			offset:   binary.LittleEndian.Uint32(raw[12:]),
		}
		if uint64(e.offset)+uint64(e.size) > uint64(len(data)) || e.size == 0 {
			continue
		}
		if !found || e.width*e.height > best.width*best.height ||
			(e.width*e.height == best.width*best.height && e.bitCount > best.bitCount) {
			best, found = e, true
		}
	}
	if !found {
		return nil, errors.New("ico: no readable entries")
	}
	return data[best.offset : best.offset+best.size], nil
}

func icoDimension(b byte) int {
	if b == 0 {
		return maxICODimension
	}
	return int(b)
}

// dibToBMP prepends a BMP file header to an icon DIB. Icon DIBs record the
// combined height of the colour and mask bitmaps, so the height is halved
// and the trailing AND mask is left unread.
func dibToBMP(dib []byte) ([]byte, error) {
	if len(dib) < 40 {
		return nil, errors.New("ico: short bitmap header")
	}
	infoLen := binary.LittleEndian.Uint32(dib[0:])
	if infoLen < 40 || int(infoLen) > len(dib) {
		return nil, fmt.Errorf("ico: unsupported bitmap header size %d", infoLen)
	}
	info := bytes.Clone(dib)
	height := int32(binary.LittleEndian.Uint32(info[8:]))
	binary.LittleEndian.PutUint32(info[8:], uint32(height/2))

	paletteLen := uint32(0)
	if bitCount := binary.LittleEndian.Uint16(info[14:]); bitCount <= 8 {
		colors := binary.LittleEndian.Uint32(info[32:])
		if colors == 0 {
			colors = 1 << bitCount
		}
		paletteLen = colors * 4
	}

	file := make([]byte, bmpHeaderLen, bmpHeaderLen+len(info))
	file[0], file[1] = 'B', 'M'
	binary.LittleEndian.PutUint32(file[2:], uint32(bmpHeaderLen+len(info)))
	binary.LittleEndian.PutUint32(file[10:], bmpHeaderLen+infoLen+paletteLen)
	return append(file, info...), nil
}
