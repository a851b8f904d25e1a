package render

import (
	"testing"

	"newsdigest/internal/discover"
)

func TestFilename(t *testing.T) {
	tests := []struct {
		name  string
		art   discover.Article
		index int
		want  string
	}{
		{
			name:  "date and title",
			art:   discover.Article{Title: "Markets wobble", Date: "Sep 7, 2025"},
			index: 0,
			want:  "Sep 7 2025 Markets wobble.pdf",
		},
		{
			name:  "no date falls back to index",
			art:   discover.Article{Title: "Chips are up"},
			index: 4,
			want:  "005 Chips are up.pdf",
		},
		{
			name:  "unsafe runes dropped",
			art:   discover.Article{Title: `Q3: "earnings" / outlook?`, Date: "Jun 1 2024"},
			index: 0,
			want:  "Jun 1 2024 Q3 earnings outlook.pdf",
		},
		{
			name:  "empty title",
			art:   discover.Article{Date: "Jun 1 2024"},
			index: 0,
			want:  "Jun 1 2024 untitled.pdf",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Filename(tt.art, tt.index); got != tt.want {
				t.Errorf("Filename = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFilename_CapsLength(t *testing.T) {
	long := make([]byte, 0, 300)
	for i := 0; i < 300; i++ {
		long = append(long, 'a')
	}
	got := Filename(discover.Article{Title: string(long), Date: "Jun 1 2024"}, 0)
	if len(got) > 104 { // 100-char stem + ".pdf"
		t.Errorf("Filename length = %d, want <= 104", len(got))
	}
}
