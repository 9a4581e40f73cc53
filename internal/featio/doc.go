// Package featio reads and writes the raw binary feature format: flat,
// native-endian float32 values in row-major order whose column count is
// declared out of band by a descriptor. It also owns the dense Matrix type
// every other stage passes around and the int32 keep-index format.
//
// Writes go through fileutil.WriteFileAtomic so re-running any stage replaces
// prior outputs wholesale.
package featio
