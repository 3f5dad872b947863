// Package bitplane implements the bit-plane slicer.
//
// A bit plane isolates one bit of one channel across the whole image and
// renders it as a black-and-white picture: 255 where the bit is set, 0 where
// it is clear. Hidden payloads in the low bits tend to show up as noise or
// blocky regions that stand out against the structure visible in the higher
// planes.
//
// Slicing is pure. Encoding and storing the planes is the job of the
// artifact package.
package bitplane
