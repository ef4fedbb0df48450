package render

import "testing"

func TestStallDetector(t *testing.T) {
	tests := []struct {
		name      string
		threshold int
		values    []float64
		want      []bool
	}{
		{
			name:      "stalls after threshold unchanged polls",
			threshold: 3,
			values:    []float64{0.42, 0.42, 0.42, 0.42},
			want:      []bool{false, false, false, true},
		},
		{
			name:      "movement resets the count",
			threshold: 2,
			values:    []float64{0.1, 0.1, 0.2, 0.2, 0.2},
			want:      []bool{false, false, false, false, true},
		},
		{
			name:      "changes below epsilon count as stuck",
			threshold: 2,
			values:    []float64{0.5, 0.5005, 0.5009},
			want:      []bool{false, false, true},
		},
		{
			name:      "first poll at the floor is movement",
			threshold: 1,
			values:    []float64{0.03},
			want:      []bool{false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewStallDetector(tt.threshold)
			for i, v := range tt.values {
				if got := d.Observe(v); got != tt.want[i] {
					t.Fatalf("Observe #%d (%v) = %v, want %v", i, v, got, tt.want[i])
				}
			}
		})
	}
}

func TestStallDetectorSixtyPolls(t *testing.T) {
	d := NewStallDetector(0)
	d.Observe(0.42)
	for i := 1; i < DefaultStallPolls; i++ {
		if d.Observe(0.42) {
			t.Fatalf("stalled early after %d unchanged polls", i)
		}
	}
	if !d.Observe(0.42) {
		t.Fatalf("expected stall after %d unchanged polls", DefaultStallPolls)
	}
}
