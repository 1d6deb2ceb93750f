package reporter

import (
	"math"
	"strconv"

	"k8s.io/apimachinery/pkg/api/resource"
)

const mebibyte = 1024 * 1024

// formatCPU renders a CPU figure in the unit the backend reports it in
func formatCPU(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "N/A"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// formatMemory renders a byte count as a Kubernetes quantity, rounded up to
// whole mebibytes once it reaches one
func formatMemory(bytes float64) string {
	if math.IsNaN(bytes) || math.IsInf(bytes, 0) {
		return "N/A"
	}
	if bytes <= 0 {
		return "0"
	}
	if bytes < mebibyte {
		return resource.NewQuantity(int64(math.Ceil(bytes)), resource.BinarySI).String()
	}
	mib := int64(math.Ceil(bytes / mebibyte))
	return resource.NewQuantity(mib*mebibyte, resource.BinarySI).String()
}
