package logic

import (
	"encoding/binary"
	"net"
	"strconv"
)

// DeviceID identifies this device in request paths.
type DeviceID uint64

// String renders the id as unsigned decimal.
func (id DeviceID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// DeviceIDFromMAC copies the hardware address into the front of a zeroed
// 8-byte buffer and reads it big-endian. Addresses longer than 8 bytes are
// truncated.
func DeviceIDFromMAC(mac net.HardwareAddr) DeviceID {
	var buf [8]byte
	copy(buf[:], mac)
	return DeviceID(binary.BigEndian.Uint64(buf[:]))
}
