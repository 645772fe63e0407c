package logic

import (
	"errors"
	"strconv"
)

// URLCapacity is the size of the request URL buffer in bytes.
const URLCapacity = 128

// ErrURLTooLong is returned by BuildURL when the formatted URL does not fit
// in URLCapacity bytes.
var ErrURLTooLong = errors.New("request url exceeds buffer capacity")

// BuildURL formats http://<base>/api/<id>/<status> into a fixed-capacity
// buffer. It returns either the complete URL or ErrURLTooLong, never a
// partially written one.
func BuildURL(base string, id DeviceID, closed bool) (string, error) {
	var buf [URLCapacity]byte
	b := buf[:0]

	b = append(b, "http://"...)
	b = append(b, base...)
	b = append(b, "/api/"...)
	b = strconv.AppendUint(b, uint64(id), 10)
	b = append(b, '/')
	b = strconv.AppendBool(b, closed)

	if len(b) > URLCapacity {
		return "", ErrURLTooLong
	}
	return string(b), nil
}
