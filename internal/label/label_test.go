package label

import "testing"

func TestLabels(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{Title("gaussian blur"), "Gaussian Blur"},
		{Title("inverse"), "Inverse"},
		{Title("horizontal flip"), "Horizontal Flip"},
		{Pipeline("gaussian blur"), "Gaussian Blur pipeline"},
		{Pass("inverse"), "Inverse pass"},
		{Pass("box blur vertical"), "Box Blur Vertical pass"},
		{Surface("input"), "Input texture"},
		{Buffer("readback"), "Readback buffer"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestTitleKeepsUpperCase(t *testing.T) {
	if got := Title("rgba8 GPU"); got != "Rgba8 GPU" {
		t.Errorf("Title = %q, want %q", got, "Rgba8 GPU")
	}
}
