package metadata

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
)

const (
	markerTEM  = 0x01
	markerRST0 = 0xd0
	markerRST7 = 0xd7
	markerSOI  = 0xd8
	markerEOI  = 0xd9
	markerSOS  = 0xda
	markerAPP0 = 0xe0
	markerAPP1 = 0xe1
	markerAPP2 = 0xe2
	markerAPPE = 0xee
	markerCOM  = 0xfe
)

var (
	jfifID = []byte("JFIF\x00")
	xmpID  = []byte("http://ns.adobe.com/xap/1.0/\x00")
	iccID  = []byte("ICC_PROFILE\x00")
)

// extractJPEG walks marker segments up to the start of scan.
func extractJPEG(data []byte, out map[string]string) {
	if len(data) < 4 || data[0] != 0xff || data[1] != markerSOI {
		return
	}
	pos := 2
	for pos+4 <= len(data) {
		if data[pos] != 0xff {
			return
		}
		marker := data[pos+1]
		if marker == 0xff {
			// fill byte
			pos++
			continue
		}
		if marker == markerSOS || marker == markerEOI {
			break
		}
		length := int(binary.BigEndian.Uint16(data[pos+2 : pos+4]))
		if length < 2 || pos+2+length > len(data) {
			return
		}
		body := data[pos+4 : pos+2+length]

		switch {
		case marker == markerAPP0 && bytes.HasPrefix(body, jfifID) && len(body) >= 12:
			set(out, "jfif_version", fmt.Sprintf("%d.%02d", body[5], body[6]))
			if body[7] == 1 {
				set(out, "dpi", fmt.Sprintf("%dx%d", binary.BigEndian.Uint16(body[8:10]), binary.BigEndian.Uint16(body[10:12])))
			}
		case marker == markerAPP1 && bytes.HasPrefix(body, xmpID):
			set(out, "xmp", string(body[len(xmpID):]))
		case marker == markerAPP2 && bytes.HasPrefix(body, iccID):
			set(out, "icc_profile", "present")
		case marker == markerAPPE && bytes.HasPrefix(body, []byte("Adobe")):
			set(out, "adobe", "present")
		case marker == markerCOM:
			set(out, "comment", string(body))
		}
		pos += 2 + length
	}

	if end := jpegEnd(data); end > 0 {
		if trailing := len(data) - end; trailing > 0 {
			set(out, "trailing_bytes", strconv.Itoa(trailing))
		}
	}
}

// jpegEnd returns the offset just past the EOI marker that ends the image,
// following every entropy-coded scan, or -1 if the image never ends.
func jpegEnd(data []byte) int {
	if len(data) < 4 || data[0] != 0xff || data[1] != markerSOI {
		return -1
	}
	pos := 2
	for pos+2 <= len(data) {
		if data[pos] != 0xff {
			return -1
		}
		marker := data[pos+1]
		switch {
		case marker == 0xff:
			pos++
			continue
		case marker == markerEOI:
			return pos + 2
		case marker == markerTEM, isRST(marker):
			pos += 2
			continue
		}
		if pos+4 > len(data) {
			return -1
		}
		length := int(binary.BigEndian.Uint16(data[pos+2 : pos+4]))
		if length < 2 || pos+2+length > len(data) {
			return -1
		}
		pos += 2 + length
		if marker == markerSOS {
			// progressive images carry one scan per SOS
			if pos = skipScan(data, pos); pos < 0 {
				return -1
			}
		}
	}
	return -1
}

// skipScan returns the offset of the first marker after the entropy-coded
// data starting at pos. Stuffed zero bytes and restart markers are part of
// the scan.
func skipScan(data []byte, pos int) int {
	for pos+1 < len(data) {
		if data[pos] != 0xff {
			pos++
			continue
		}
		switch next := data[pos+1]; {
		case next == 0x00, isRST(next):
			pos += 2
		case next == 0xff:
			pos++
		default:
			return pos
		}
	}
	return -1
}

func isRST(marker byte) bool {
	return marker >= markerRST0 && marker <= markerRST7
}
