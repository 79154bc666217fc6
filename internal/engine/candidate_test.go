package engine

import "testing"

func TestNewRegistryMarksExcludedBeforeRound1(t *testing.T) {
	registry := NewRegistry([]string{"Amy", "Bob", "Cara"}, []string{"Bob"})

	if registry.State(registry.byName["Amy"]).Status != Continuing {
		t.Errorf("expected Amy to be Continuing")
	}
	bobID, _ := registry.Lookup("Bob")
	if registry.State(bobID).Status != Excluded {
		t.Errorf("expected Bob to be Excluded")
	}

	continuing := registry.Continuing()
	if len(continuing) != 2 {
		t.Fatalf("expected 2 continuing candidates, got %d", len(continuing))
	}
}

func TestRegistryLookupUnknown(t *testing.T) {
	registry := NewRegistry([]string{"Amy"}, nil)
	if _, ok := registry.Lookup("Ghost"); ok {
		t.Errorf("expected lookup of an unregistered name to fail")
	}
}

func TestRegistryLookupMatchesAcrossUnicodeCompositionAndWhitespace(t *testing.T) {
	// "José" (precomposed é) registered; ballots may arrive with the
	// decomposed form (e + combining acute accent) or padding whitespace.
	registry := NewRegistry([]string{"José"}, nil)

	decomposed := "José"
	id, ok := registry.Lookup(decomposed)
	if !ok {
		t.Fatalf("expected decomposed-Unicode name to match its precomposed registration")
	}
	if registry.Name(id) != "José" {
		t.Errorf("unexpected candidate resolved: %s", registry.Name(id))
	}

	if _, ok := registry.Lookup("  José  "); !ok {
		t.Errorf("expected surrounding whitespace to be trimmed before lookup")
	}
}

func TestNewRegistryExcludesByNormalizedName(t *testing.T) {
	registry := NewRegistry([]string{"José", "Amy"}, []string{"José"})

	id, _ := registry.Lookup("José")
	if registry.State(id).Status != Excluded {
		t.Errorf("expected excludedCandidates to match registration via Unicode normalization")
	}
}
