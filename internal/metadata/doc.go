// Package metadata implements the metadata extractor.
//
// Extract pulls embedded textual and structural metadata out of the raw
// bytes of an ingested image:
//   - EXIF camera tags, through github.com/dsoprea/go-exif/v3
//   - PNG text chunks (tEXt, zTXt, iTXt) and the tIME, pHYs, gAMA, and
//     iCCP chunks
//   - JPEG JFIF header, COM comments, XMP, ICC, and Adobe segments
//   - bytes trailing the end-of-image marker of PNG and JPEG files
//
// Extraction never fails. Malformed or absent metadata yields fewer
// entries, and an image without any metadata yields an empty map.
package metadata
