package lptable

import "testing"

func TestTableSize(t *testing.T) {
	if len(Table) != 4096 {
		t.Fatalf("Table has %d entries, want 4096", len(Table))
	}
}

func TestTableEndpoints(t *testing.T) {
	if Table[0] != 0 {
		t.Errorf("Table[0] = %d, want 0", Table[0])
	}
	if Table[4095] != -1 {
		t.Errorf("Table[4095] = %d, want -1", Table[4095])
	}
}

func TestTableNegativeTransition(t *testing.T) {
	if Table[2047] != 32704 {
		t.Errorf("Table[2047] = %d, want 32704", Table[2047])
	}
	if Table[2048] != -32768 {
		t.Errorf("Table[2048] = %d, want -32768", Table[2048])
	}
}

func TestPermutationSize(t *testing.T) {
	if len(Permutation) != 5760 {
		t.Fatalf("Permutation has %d entries, want 5760", len(Permutation))
	}
}

func TestPermutationIsAPermutation(t *testing.T) {
	seen := make([]bool, 5760)
	for _, p := range Permutation {
		if p < 0 || p >= 5760 {
			t.Fatalf("Permutation entry %d out of range", p)
		}
		if seen[p] {
			t.Fatalf("Permutation entry %d appears more than once", p)
		}
		seen[p] = true
	}
}
