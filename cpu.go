package mc

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sys/cpu"
)

// ErrUnknownCPU is the error returned by ParseCPU for a flag name it does not know.
var ErrUnknownCPU = errors.New("unknown cpu flag")

// CPU is a capability mask selecting kernel families.
type CPU uint32

// Instruction set families.
const (
	CPUSSE2 CPU = 1 << iota
	CPUSSSE3
	CPUAVX
	CPUAVX2
	CPUNEON
	CPUMSA
)

// Tuning hints. They never enable kernels on their own. On x86 the cache line and slow
// unaligned hints make block averaging and luma compensation align their reference
// loads; SSE2IsSlow and SlowShuffle keep kernels on narrower or scalar variants.
const (
	CPUCacheline32 CPU = 1 << (iota + 16)
	CPUCacheline64
	CPUSSE2IsSlow
	CPUSlowShuffle
	CPUSlowUnaligned
)

var cpuNames = []struct {
	name string
	flag CPU
}{
	{"sse2", CPUSSE2},
	{"ssse3", CPUSSSE3},
	{"avx", CPUAVX},
	{"avx2", CPUAVX2},
	{"neon", CPUNEON},
	{"msa", CPUMSA},
	{"cache32", CPUCacheline32},
	{"cache64", CPUCacheline64},
	{"sse2slow", CPUSSE2IsSlow},
	{"slow_shuffle", CPUSlowShuffle},
	{"slow_unaligned", CPUSlowUnaligned},
}

// Detect reports the features of the running processor.
func Detect() CPU {
	var c CPU

	if cpu.X86.HasSSE2 {
		c |= CPUSSE2 | CPUCacheline64
	}
	if cpu.X86.HasSSSE3 {
		c |= CPUSSSE3
	}
	if cpu.X86.HasAVX {
		c |= CPUAVX
	}
	if cpu.X86.HasAVX2 {
		c |= CPUAVX2
	}

	if cpu.ARM64.HasASIMD || cpu.ARM.HasNEON {
		c |= CPUNEON
	}

	if cpu.MIPS64X.HasMSA {
		c |= CPUMSA
	}

	return c
}

// String returns the comma separated flag names, or "none".
func (c CPU) String() string {
	var names []string
	for _, n := range cpuNames {
		if c&n.flag != 0 {
			names = append(names, n.name)
		}
	}

	if len(names) == 0 {
		return "none"
	}

	return strings.Join(names, ",")
}

// ParseCPU parses a comma separated list of flag names as printed by String.
// "none" and the empty string yield 0, "auto" yields Detect().
func ParseCPU(s string) (CPU, error) {
	var c CPU

	for _, f := range strings.Split(s, ",") {
		f = strings.ToLower(strings.TrimSpace(f))
		switch f {
		case "", "none":
			continue
		case "auto":
			c |= Detect()
			continue
		}

		found := false
		for _, n := range cpuNames {
			if n.name == f {
				c |= n.flag
				found = true
				break
			}
		}

		if !found {
			return 0, fmt.Errorf("%w: %q", ErrUnknownCPU, f)
		}
	}

	return c, nil
}
