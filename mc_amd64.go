//go:build amd64 && !noasm

package mc

func initArch[P Pixel](cpu CPU, pf *Functions[P], c *scalar[P]) {
	initX86(cpu, pf, c)
}
