package device

import (
	"strings"

	"golang.org/x/sys/cpu"
)

// CPUFeatures tracks the instruction set extensions relevant to the
// bit-parallel kernels: population count and wide integer SIMD.
type CPUFeatures struct {
	HasPOPCNT bool
	HasBMI2   bool
	HasAVX2   bool
	HasASIMD  bool // arm64 Advanced SIMD
}

var cpuFeatures = CPUFeatures{
	HasPOPCNT: cpu.X86.HasPOPCNT,
	HasBMI2:   cpu.X86.HasBMI2,
	HasAVX2:   cpu.X86.HasAVX2,
	HasASIMD:  cpu.ARM64.HasASIMD,
}

// Features returns the detected CPU features.
func Features() CPUFeatures {
	return cpuFeatures
}

// HardwarePopcount reports whether popcount compiles to a single instruction.
func HardwarePopcount() bool {
	return cpuFeatures.HasPOPCNT || cpuFeatures.HasASIMD
}

// GetCPUInfo returns a string describing available CPU features
func GetCPUInfo() string {
	var features []string
	if cpuFeatures.HasPOPCNT {
		features = append(features, "POPCNT")
	}
	if cpuFeatures.HasBMI2 {
		features = append(features, "BMI2")
	}
	if cpuFeatures.HasAVX2 {
		features = append(features, "AVX2")
	}
	if cpuFeatures.HasASIMD {
		features = append(features, "ASIMD")
	}
	if len(features) == 0 {
		return "No SIMD extensions detected"
	}
	return "CPU features: " + strings.Join(features, ", ")
}
