package discover

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

const archiveHTML = `
<html><body>
  <div class="issue">
    <a href="/daily/issues/2025-09-07">Markets wobble <time>Sep 7 2025</time></a>
  </div>
  <div class="issue">
    <a href="/daily/issues/2025-09-06">Chips are up</a>
    <time>Sep 6 2025</time>
  </div>
  <div class="issue">
    <a href="/daily/issues/2025-09-07#top">Markets wobble again</a>
  </div>
  <a href="https://example.com/daily/issues/2025-09-05">Quiet Friday</a>
  <a href="/about">About us</a>
</body></html>`

func TestHarvestLinks(t *testing.T) {
	got, err := HarvestLinks(archiveHTML, "https://example.com/daily/issues", "a[href*='/daily/issues/']")
	if err != nil {
		t.Fatalf("HarvestLinks: %v", err)
	}

	want := []Article{
		{URL: "https://example.com/daily/issues/2025-09-07", Title: "Markets wobble Sep 7 2025", Date: "Sep 7 2025"},
		{URL: "https://example.com/daily/issues/2025-09-06", Title: "Chips are up", Date: "Sep 6 2025"},
		{URL: "https://example.com/daily/issues/2025-09-05", Title: "Quiet Friday"},
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(Article{}, "ScrapedAt")); diff != "" {
		t.Errorf("HarvestLinks mismatch (-want +got):\n%s", diff)
	}
	for _, a := range got {
		if a.ScrapedAt == "" {
			t.Errorf("article %s has empty scraped_at", a.URL)
		}
	}
}

func TestHarvestLinks_DedupsByResolvedURL(t *testing.T) {
	// The fragment-only duplicate of the 09-07 issue must collapse onto the
	// first occurrence.
	got, err := HarvestLinks(archiveHTML, "https://example.com/daily/issues", "a[href*='/daily/issues/']")
	if err != nil {
		t.Fatalf("HarvestLinks: %v", err)
	}
	seen := map[string]int{}
	for _, a := range got {
		seen[a.URL]++
	}
	for u, n := range seen {
		if n > 1 {
			t.Errorf("url %s appears %d times, want 1", u, n)
		}
	}
}
