package discussion

import "testing"

func TestSamplePersonas_DrawsDistinct(t *testing.T) {
	catalog := make(map[string]bool)
	for _, p := range AllPersonas() {
		catalog[p.Key] = true
	}

	got := SamplePersonas(3)
	if len(got) != 3 {
		t.Fatalf("unexpected sample size: %d", len(got))
	}
	seen := make(map[string]bool)
	for _, p := range got {
		if !catalog[p.Key] {
			t.Fatalf("sampled persona %q is not in the catalog", p.Key)
		}
		if seen[p.Key] {
			t.Fatalf("persona %q sampled twice", p.Key)
		}
		seen[p.Key] = true
		if p.Name == "" || p.Prompt == "" {
			t.Fatalf("persona %q is missing a name or prompt", p.Key)
		}
	}
}

func TestSamplePersonas_ClampsToCatalog(t *testing.T) {
	if got := SamplePersonas(50); len(got) != len(AllPersonas()) {
		t.Fatalf("oversized request should return the whole catalog, got %d", len(got))
	}
	if got := SamplePersonas(0); len(got) != 0 {
		t.Fatalf("zero request should be empty, got %d", len(got))
	}
	if got := SamplePersonas(-1); len(got) != 0 {
		t.Fatalf("negative request should be empty, got %d", len(got))
	}
}

func TestAllPersonas_ReturnsACopy(t *testing.T) {
	first := AllPersonas()
	first[0].Name = "mutated"
	if AllPersonas()[0].Name == "mutated" {
		t.Fatal("catalog shares backing storage with callers")
	}
}
