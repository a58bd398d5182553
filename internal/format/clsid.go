package format

import "github.com/google/uuid"

// ClassID converts an on-disk CLSID to a uuid.UUID. The first three GUID
// fields are stored little-endian; uuid.UUID is big-endian throughout.
func ClassID(raw [16]byte) uuid.UUID {
	var u uuid.UUID
	u[0], u[1], u[2], u[3] = raw[3], raw[2], raw[1], raw[0]
	u[4], u[5] = raw[5], raw[4]
	u[6], u[7] = raw[7], raw[6]
	copy(u[8:], raw[8:])
	return u
}

// RawClassID is the inverse of ClassID.
func RawClassID(u uuid.UUID) [16]byte {
	var raw [16]byte
	raw[0], raw[1], raw[2], raw[3] = u[3], u[2], u[1], u[0]
	raw[4], raw[5] = u[5], u[4]
	raw[6], raw[7] = u[7], u[6]
	copy(raw[8:], u[8:])
	return raw
}
