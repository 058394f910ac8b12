package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressBar(t *testing.T) {
	tests := []struct {
		name    string
		total   int
		current int
		want    string
		perc    int
	}{
		{"empty", 0, 0, "[          ] 0/0 (0%)", 0},
		{"half", 4, 2, "[=====     ] 2/4 (50%)", 50},
		{"done", 3, 3, "[==========] 3/3 (100%)", 100},
		{"overflow", 2, 5, "[==========] 5/2 (100%)", 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pb := NewProgressBar(tt.total, 10, false)
			pb.Update(tt.current)
			assert.Equal(t, tt.want, pb.Render())
			assert.Equal(t, tt.perc, pb.Percentage())
		})
	}
}

func TestProgressBar_IncrementAndPrefix(t *testing.T) {
	pb := NewProgressBar(2, 0, false)
	pb.SetPrefix("Files: ")
	pb.Increment()
	assert.Equal(t, "Files: [=====     ] 1/2 (50%)", pb.Render())
}
