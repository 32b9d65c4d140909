package domain

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Aurora Home Goods", "aurora-home-goods"},
		{"  padded name  ", "padded-name"},
		{"Ceramic Mug (Large)", "ceramic-mug-large"},
		{"50% Off!!", "50-off"},
		{"UPPER", "upper"},
		{"---", ""},
		{"", ""},
		{"café corner", "caf-corner"},
	}

	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
