package utils

import (
	"github.com/valyala/bytebufferpool"
)

// bodyPool holds the buffers used to encode outbound requests and read
// upstream responses. bytebufferpool calibrates its size classes on use,
// so one pool serves both small Telegram payloads and completion bodies.
var bodyPool bytebufferpool.Pool

// Get returns an empty buffer from the pool
func Get() *bytebufferpool.ByteBuffer {
	return bodyPool.Get()
}

// Put resets buf and returns it to the pool. buf must not be used afterwards.
func Put(buf *bytebufferpool.ByteBuffer) {
	if buf == nil {
		return
	}
	bodyPool.Put(buf)
}
