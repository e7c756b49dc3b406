package mc

import (
	"encoding/binary"
	"unsafe"
)

// SIMD-within-a-register helpers. A uint64 is treated as 8 byte lanes, 4 word lanes
// or 2 double word lanes. Lane-wise operations load and store in native order;
// operations that move samples between lanes use little-endian order so lane 0 is the
// lowest address.
//
// Signed filter arithmetic runs on packed lanes with a constant added to every lane.
// Wrapping uint64 arithmetic is exact as long as each final lane lies in [0, 1<<16)
// (or [0, 1<<32) for double words), whatever the intermediate carries.

const (
	lo7x8  = 0x7f7f7f7f7f7f7f7f
	hi1x8  = 0x8080808080808080
	lo15   = 0x7fff7fff7fff7fff
	hi1x16 = 0x8000800080008000
	even8  = 0x00ff00ff00ff00ff
	even16 = 0x0000ffff0000ffff
	ones8  = 0x0101010101010101
	ones16 = 0x0001000100010001
	hi1x32 = 0x8000000080000000
	ones32 = 0x0000000100000001
)

func asBytes[P Pixel](s []P) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*sizeOf[P]())
}

// avgWord is the per-lane rounding average (a+b+1)>>1.
func avgWord(a, b uint64, size int) uint64 {
	if size == 1 {
		return (a | b) - ((a ^ b) >> 1 & lo7x8)
	}
	return (a | b) - ((a ^ b) >> 1 & lo15)
}

// addSat8 adds byte lanes with unsigned saturation.
func addSat8(a, b uint64) uint64 {
	s := (a & lo7x8) + (b & lo7x8)
	r := s ^ ((a ^ b) & hi1x8)
	c := ((a & b) | ((a | b) &^ r)) & hi1x8
	return r | (c>>7)*0xff
}

// subSat8 subtracts byte lanes, saturating at zero.
func subSat8(a, b uint64) uint64 {
	return ^addSat8(^a, b)
}

// addClamp16 adds word lanes holding at most 15 significant bits and clamps each to m.
func addClamp16(a, b uint64, m int) uint64 {
	x := a + b
	over := ((x | hi1x16) - uint64(m+1)*ones16) & hi1x16
	mask := (over >> 15) * 0xffff
	return x&^mask | uint64(m)*ones16&mask
}

// subClamp16 subtracts word lanes holding at most 15 significant bits, saturating at zero.
func subClamp16(a, b uint64) uint64 {
	t := (a | hi1x16) - b
	keep := ((t & hi1x16) >> 15) * 0xffff
	return t &^ hi1x16 & keep
}

// spread moves the four bytes (size 1) or two words (size 2) of x into the even lanes.
func spread(x uint64, size int) uint64 {
	x = (x | x<<16) & even16
	if size == 1 {
		x = (x | x<<8) & even8
	}
	return x
}

// compact gathers the even lanes of x into the low half.
func compact(x uint64, size int) uint64 {
	if size == 1 {
		x &= even8
		x = (x | x>>8) & even16
	} else {
		x &= even16
	}
	return (x | x>>16) & 0xffffffff
}

func load64(b []byte) uint64 {
	return binary.NativeEndian.Uint64(b)
}

func store64(b []byte, v uint64) {
	binary.NativeEndian.PutUint64(b, v)
}

func loadLE64(b []byte) uint64 {
	return binary.LittleEndian.Uint64(b)
}

func storeLE64(b []byte, v uint64) {
	binary.LittleEndian.PutUint64(b, v)
}

func loadLE32(b []byte) uint64 {
	return uint64(binary.LittleEndian.Uint32(b))
}

func storeLE32(b []byte, v uint64) {
	binary.LittleEndian.PutUint32(b, uint32(v))
}

// splat16 repeats c, which may be negative, in every word lane.
func splat16(c int) uint64 {
	return uint64(int64(c)) * ones16
}

func splat32(c int) uint64 {
	return uint64(int64(c)) * ones32
}

// tap6Lanes is the 6-tap operator on packed lanes holding the samples at offsets -2
// to 3, plus bias.
func tap6Lanes(a, b, c, d, e, f, bias uint64) uint64 {
	return 20*(c+d) + a + f + bias - 5*(b+e)
}

// shr16 shifts every word lane right by n.
func shr16(x uint64, n int) uint64 {
	return x >> n & (uint64(0xffff>>n) * ones16)
}

func shr32(x uint64, n int) uint64 {
	return x >> n & (uint64(0xffffffff>>n) * ones32)
}

// clamp16 clamps word lanes below 1<<15 to [lo, hi], hi < 1<<15.
func clamp16(x uint64, lo, hi int) uint64 {
	ge := ((x | hi1x16) - uint64(lo)*ones16) & hi1x16
	m := (ge >> 15) * 0xffff
	x = x&m | uint64(lo)*ones16&^m

	gt := ((x | hi1x16) - uint64(hi+1)*ones16) & hi1x16
	m = (gt >> 15) * 0xffff
	return x&^m | uint64(hi)*ones16&m
}

// clamp32 clamps double word lanes below 1<<31 to [lo, hi], hi < 1<<31.
func clamp32(x uint64, lo, hi int) uint64 {
	ge := ((x | hi1x32) - uint64(lo)*ones32) & hi1x32
	m := (ge >> 31) * 0xffffffff
	x = x&m | uint64(lo)*ones32&^m

	gt := ((x | hi1x32) - uint64(hi+1)*ones32) & hi1x32
	m = (gt >> 31) * 0xffffffff
	return x&^m | uint64(hi)*ones32&m
}

// unbias16 subtracts 1<<15 from every word lane, lanes below it become zero.
func unbias16(x uint64) uint64 {
	keep := ((x & hi1x16) >> 15) * 0xffff
	return x &^ hi1x16 & keep
}
