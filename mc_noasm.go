//go:build (!amd64 && !arm64 && !mips64 && !mips64le) || noasm

package mc

// initArch keeps the scalar kernels.
func initArch[P Pixel](cpu CPU, pf *Functions[P], c *scalar[P]) {}
