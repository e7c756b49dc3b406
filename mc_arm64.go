//go:build arm64 && !noasm

package mc

func initArch[P Pixel](cpu CPU, pf *Functions[P], c *scalar[P]) {
	initNEON(cpu, pf, c)
}
