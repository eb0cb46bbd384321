// Package wire implements the draw-command binary opcode stream shared by
// the tick loop, the delivery coordinator, and the debug rasterizer.
package wire

// Opcode identifies a single draw-command record. 0x00 is reserved.
type Opcode byte

const (
	OpClear     Opcode = 0x01
	OpSetColor  Opcode = 0x02
	OpFillRect  Opcode = 0x03
	OpDrawLine  Opcode = 0x04
	OpDrawText  Opcode = 0x05
	OpLoadSound Opcode = 0x06
	OpPlaySound Opcode = 0x07
	OpStopSound Opcode = 0x08
	OpSetVolume Opcode = 0x09
	OpLoadImage Opcode = 0x0A
	OpDrawImage Opcode = 0x0B
)

// MaxStringLen is the largest string payload the wire format can carry:
// strings are length-prefixed with a u16.
const MaxStringLen = 65535
