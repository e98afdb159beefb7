package blobcache

import "bytes"

// newByteReader returns a fresh *bytes.Reader over data. Each OpenStream
// call gets its own reader instance so concurrent readers over the same
// cached entry don't share a read cursor.
func newByteReader(data []byte) *bytes.Reader {
	return bytes.NewReader(data)
}
