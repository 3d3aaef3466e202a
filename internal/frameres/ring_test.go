package frameres

import "testing"

func TestAlignUp(t *testing.T) {
	tests := []struct {
		size uint64
		want uint64
	}{
		{0, 0},
		{1, 256},
		{256, 256},
		{257, 512},
		{944, 1024},
	}
	for _, tc := range tests {
		if got := alignUp(tc.size); got != tc.want {
			t.Errorf("alignUp(%d) = %d, want %d", tc.size, got, tc.want)
		}
	}
}
