package blake3

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/klauspost/cpuid/v2"
)

var (
	haveAVX2   = cpuid.CPU.Supports(cpuid.AVX2)
	haveAVX512 = cpuid.CPU.Supports(cpuid.AVX512F)
)

// DefaultWorkers returns the number of goroutines WriteParallel uses when the
// caller does not choose: one per logical core.
func DefaultWorkers() int {
	if n := cpuid.CPU.LogicalCores; n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// CPUFeatures describes the processor and the vector extensions that bear on
// hashing throughput, e.g. "AMD EPYC 7B13 (64 logical cores; avx2 avx512f)".
func CPUFeatures() string {
	var exts []string
	if haveAVX2 {
		exts = append(exts, "avx2")
	}
	if haveAVX512 {
		exts = append(exts, "avx512f")
	}
	if len(exts) == 0 {
		exts = append(exts, "generic")
	}
	brand := cpuid.CPU.BrandName
	if brand == "" {
		brand = runtime.GOARCH
	}
	return fmt.Sprintf("%s (%d logical cores; %s)", brand, DefaultWorkers(), strings.Join(exts, " "))
}
