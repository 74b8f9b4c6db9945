// Package stack drives a daisy chain of battery monitors from the bus
// master: register access, link bring-up and auto-addressing.
//
// The host talks only to the base device (ordinal 0). Stack and broadcast
// frames are relayed upwards; replies travel back down and arrive top
// device first.
//
// Auto-addressing depends on a hardware contract: once CONTROL1.ADDR_WR is
// set, the k-th broadcast write to DEVADD_USR is latched by the k-th device
// counted from the base, so broadcasting 0..N-1 in order assigns ordinals
// 0..N-1 along the chain.
package stack
