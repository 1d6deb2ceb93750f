package models

import "testing"

func TestParseWorkloadKind(t *testing.T) {
	tests := []struct {
		input    string
		expected WorkloadKind
	}{
		{"Deployment", KindDeployment},
		{"  deployment ", KindDeployment},
		{"StatefulSet", KindStatefulSet},
		{"DaemonSet", KindDaemonSet},
		{"CronJob", KindCronJob},
		{"job", KindJob},
		{"Job", KindJob},
		{"batch-job", KindOther},
		{"ReplicaSet", KindOther},
		{"", KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseWorkloadKind(tt.input); got != tt.expected {
				t.Errorf("ParseWorkloadKind(%q) = %s, want %s", tt.input, got, tt.expected)
			}
		})
	}
}

func TestWorkloadMetricsSeries(t *testing.T) {
	w := &WorkloadMetrics{}
	for _, metric := range AllMetricTypes {
		series := w.Series(metric)
		if series == nil {
			t.Fatalf("Series(%s) returned nil", metric)
		}
		*series = append(*series, 1)
	}

	if len(w.CPUUsage) != 1 || len(w.MemoryUsage) != 1 || len(w.CPURequest) != 1 ||
		len(w.MemoryRequest) != 1 || len(w.PodCount) != 1 {
		t.Errorf("Expected every stream to hold one value, got %+v", w)
	}

	if w.Series("bogus") != nil {
		t.Error("Expected nil series for unknown metric type")
	}
}

func TestLowUtilization(t *testing.T) {
	rec := &WorkloadRecommendation{CPUStatus: StatusBalanced, MemoryStatus: StatusOverProvisioned}
	if !rec.LowUtilization() {
		t.Error("Expected memory over-provisioning to flag low utilization")
	}

	rec.MemoryStatus = StatusUnknown
	if rec.LowUtilization() {
		t.Error("Expected balanced/unknown not to flag low utilization")
	}
}
