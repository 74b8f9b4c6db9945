// Package comm provides the frame codec for the daisy-chain link.
//
// Frames are sent by the bus master (host) to the base device of the chain,
// which relays them upwards through the daisy-chain interface. Every frame
// looks like:
//
//	[opcode] [device?] [regHi] [regLo] [data 1..8] [crcLo] [crcHi]
//
// The opcode always has bit 7 set. Bits 6..4 select the addressing class and
// whether a reply is expected (see WriteType); for writes the low nibble
// holds len(data)-1. Only single-device frames carry the device byte, stack
// and broadcast frames reach their targets by propagation along the chain.
//
// Read requests are frames of a response type carrying exactly one data
// byte: the number of register bytes wanted minus one. A response type frame
// may be encoded with more data, but its opcode has no length and receivers
// take a single byte.
//
// Devices reply with one frame each:
//
//	[len-1] [device] [regHi] [regLo] [data 1..128] [crcLo] [crcHi]
//
// The CRC is CRC-16 (x^16+x^15+x^2+1, reflected, initial 0xffff, no final
// xor) over all preceding bytes, transmitted low byte first.
package comm
