package scoring

import "testing"

func TestApplyWeight_DisabledIsIdentity(t *testing.T) {
	s := NewService(&Config{
		CollectionWeights: map[string]float64{"docs": 2.0},
		FileTypeWeights:   map[string]float64{"PDF": 0.5},
	})

	got := s.ApplyWeight(0.8, "docs", "pdf")
	if got != 0.8 {
		t.Fatalf("expected identity when toggles disabled, got %v", got)
	}
	if s.Active() {
		t.Fatalf("expected Active() false when both toggles disabled")
	}
}

func TestApplyWeight_CollectionWeight(t *testing.T) {
	s := NewService(&Config{
		CollectionWeightEnabled: true,
		CollectionWeights:       map[string]float64{"docs": 2.0},
	})

	got := s.ApplyWeight(0.5, "docs", "")
	if got != 1.0 {
		t.Fatalf("expected 1.0, got %v", got)
	}
}

func TestApplyWeight_UnknownCollectionFallsBackToOne(t *testing.T) {
	s := NewService(&Config{
		CollectionWeightEnabled: true,
		CollectionWeights:       map[string]float64{"docs": 2.0},
	})

	got := s.ApplyWeight(0.5, "unknown-collection", "")
	if got != 0.5 {
		t.Fatalf("expected unknown collection to fall back to multiplier 1.0, got %v", got)
	}
}

func TestApplyWeight_FileTypeNormalizedToUpper(t *testing.T) {
	s := NewService(&Config{
		FileTypeWeightEnabled: true,
		FileTypeWeights:       map[string]float64{"PDF": 0.25},
	})

	got := s.ApplyWeight(1.0, "", "pdf")
	if got != 0.25 {
		t.Fatalf("expected lower-case file type to match upper-cased key, got %v", got)
	}
}

func TestApplyWeight_BothWeightsCompound(t *testing.T) {
	s := NewService(&Config{
		CollectionWeightEnabled: true,
		FileTypeWeightEnabled:   true,
		CollectionWeights:       map[string]float64{"docs": 2.0},
		FileTypeWeights:         map[string]float64{"PDF": 0.5},
	})

	got := s.ApplyWeight(1.0, "docs", "pdf")
	if got != 1.0 {
		t.Fatalf("expected 2.0*0.5*1.0 = 1.0, got %v", got)
	}
	if !s.Active() {
		t.Fatalf("expected Active() true when a toggle is enabled")
	}
}

func TestApplyWeight_EmptyKeysSkipMultiplier(t *testing.T) {
	s := NewService(&Config{
		CollectionWeightEnabled: true,
		FileTypeWeightEnabled:   true,
		CollectionWeights:       map[string]float64{"docs": 2.0},
		FileTypeWeights:         map[string]float64{"PDF": 0.5},
	})

	got := s.ApplyWeight(1.0, "", "")
	if got != 1.0 {
		t.Fatalf("expected empty collection/file type to skip weighting, got %v", got)
	}
}

func TestNewService_NilConfig(t *testing.T) {
	s := NewService(nil)
	if got := s.ApplyWeight(0.42, "docs", "pdf"); got != 0.42 {
		t.Fatalf("expected identity with nil config, got %v", got)
	}
}
