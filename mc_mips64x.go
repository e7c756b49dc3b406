//go:build (mips64 || mips64le) && !noasm

package mc

func initArch[P Pixel](cpu CPU, pf *Functions[P], c *scalar[P]) {
	initMSA(cpu, pf, c)
}
