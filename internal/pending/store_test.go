package pending

import "testing"

func TestNewUpdate_WithMatch(t *testing.T) {
	u := NewUpdate("some transcript", "Marketing", 0.5, "ambiguous section match")
	if u.ID == "" {
		t.Error("expected a generated id")
	}
	if u.MatchedSection == nil || *u.MatchedSection != "Marketing" {
		t.Error("expected matched section to be set")
	}
	if u.Similarity == nil || *u.Similarity != 0.5 {
		t.Error("expected similarity to be set")
	}
	if u.SuggestedAction != "update" {
		t.Errorf("expected suggested action update, got %q", u.SuggestedAction)
	}
}

func TestNewUpdate_WithoutMatch(t *testing.T) {
	u := NewUpdate("unrelated transcript", "", 0, "speaker hedged with 'maybe'")
	if u.MatchedSection != nil {
		t.Error("expected nil matched section")
	}
	if u.SuggestedAction != "create" {
		t.Errorf("expected suggested action create, got %q", u.SuggestedAction)
	}
	if u.Reason == "" {
		t.Error("expected reason to be carried")
	}
}

func TestStore_RemoveTwiceReportsNotFound(t *testing.T) {
	s := NewStore()
	u := NewUpdate("text", "", 0, "r")
	s.Add(u)

	if _, ok := s.Remove(u.ID); !ok {
		t.Fatal("expected first remove to succeed")
	}
	if _, ok := s.Remove(u.ID); ok {
		t.Fatal("expected second remove to report not found")
	}
}

func TestStore_ListPreservesCreationOrder(t *testing.T) {
	s := NewStore()
	a := NewUpdate("a", "", 0, "r")
	b := NewUpdate("b", "", 0, "r")
	c := NewUpdate("c", "", 0, "r")
	s.Add(a)
	s.Add(b)
	s.Add(c)
	s.Remove(b.ID)

	list := s.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(list))
	}
	if list[0].ID != a.ID || list[1].ID != c.ID {
		t.Error("expected creation order to survive removal")
	}
}

func TestStore_ListNeverNil(t *testing.T) {
	s := NewStore()
	if s.List() == nil {
		t.Error("expected empty slice, got nil")
	}
}

func TestStore_Clear(t *testing.T) {
	s := NewStore()
	s.Add(NewUpdate("a", "", 0, "r"))
	s.Add(NewUpdate("b", "", 0, "r"))
	s.Clear()
	if s.Len() != 0 {
		t.Errorf("expected empty store, got %d", s.Len())
	}
}
