package domain

import "testing"

func TestPriceSymbols(t *testing.T) {
	tests := []struct {
		tier int
		want string
	}{
		{1, "$"},
		{2, "$$"},
		{3, "$$$"},
		{4, "$$$$"},
		{0, ""},
		{5, ""},
		{-1, ""},
	}
	for _, tt := range tests {
		if got := PriceSymbols(tt.tier); got != tt.want {
			t.Errorf("PriceSymbols(%d) = %q, want %q", tt.tier, got, tt.want)
		}
	}
}

func TestParsePriceSymbols(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"$", 1, false},
		{"$$$", 3, false},
		{"2", 2, false},
		{" 4 ", 4, false},
		{"", 0, true},
		{"$$$$$", 0, true},
		{"0", 0, true},
		{"5", 0, true},
		{"cheap", 0, true},
	}
	for _, tt := range tests {
		got, err := ParsePriceSymbols(tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParsePriceSymbols(%q) = %d, want error", tt.raw, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParsePriceSymbols(%q): %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePriceSymbols(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestValidRating(t *testing.T) {
	for rating := RatingMin; rating <= RatingMax; rating++ {
		if !ValidRating(rating) {
			t.Errorf("ValidRating(%d) = false, want true", rating)
		}
	}
	for _, rating := range []int{0, -1, 6, 100} {
		if ValidRating(rating) {
			t.Errorf("ValidRating(%d) = true, want false", rating)
		}
	}
}
