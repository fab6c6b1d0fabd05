package memory

import "testing"

func TestAddTurnAndRecentTurns(t *testing.T) {
	s := NewStore()
	c := s.Session("sess")
	c.AddTurn(RoleUser, "first question")
	c.AddTurn(RoleAssistant, "first answer")
	c.AddTurn(RoleUser, "second question")

	turns := c.RecentTurns(2)
	if len(turns) != 2 {
		t.Fatalf("Expected 2 turns, but got %d", len(turns))
	}
	if turns[0].Text != "first answer" || turns[1].Text != "second question" {
		t.Errorf("Expected the latest two turns oldest-first, but got %q then %q", turns[0].Text, turns[1].Text)
	}
}

func TestRecentTurnsMoreThanStored(t *testing.T) {
	c := NewStore().Session("sess")
	c.AddTurn(RoleUser, "only turn")
	turns := c.RecentTurns(5)
	if len(turns) != 1 {
		t.Fatalf("Expected 1 turn, but got %d", len(turns))
	}
}

func TestSessionCreatesOnFirstUse(t *testing.T) {
	s := NewStore()
	a := s.Session("sess")
	b := s.Session("sess")
	if a != b {
		t.Errorf("Expected the same conversation for the same id")
	}
	if a.SessionID() != "sess" {
		t.Errorf("Expected session id to stick, but got %q", a.SessionID())
	}
	if turns := a.RecentTurns(3); turns != nil {
		t.Errorf("Expected a fresh conversation to have no turns, but got %v", turns)
	}
}

func TestAddTurnIgnoresEmptyText(t *testing.T) {
	c := NewStore().Session("sess")
	c.AddTurn(RoleUser, "   ")
	c.AddTurn(RoleUser, "")
	if got := c.Len(); got != 0 {
		t.Errorf("Expected empty turns to be dropped, but got %d", got)
	}
}

func TestRememberEntitiesDeduplicates(t *testing.T) {
	c := NewStore().Session("sess")
	c.RememberEntities([]string{"BTC", "ETH"})
	c.RememberEntities([]string{"ETH", "SOL", "", "BTC"})

	got := c.Entities()
	want := []string{"BTC", "ETH", "SOL"}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, but got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected %v in first-seen order, but got %v", want, got)
		}
	}
}

func TestTopic(t *testing.T) {
	c := NewStore().Session("sess")
	c.SetTopic("technical")
	c.SetTopic("  ")
	if got := c.Topic(); got != "technical" {
		t.Errorf("Expected a blank topic update to be ignored, but got %q", got)
	}
}

func TestResetClearsEverything(t *testing.T) {
	c := NewStore().Session("sess")
	c.AddTurn(RoleUser, "something")
	c.SetTopic("news")
	c.RememberEntities([]string{"BTC"})

	c.Reset()
	if c.Len() != 0 || c.Topic() != "" || len(c.Entities()) != 0 {
		t.Errorf("Expected an empty conversation after reset, but got %d turns, topic %q, entities %v",
			c.Len(), c.Topic(), c.Entities())
	}
	if c.SessionID() != "sess" {
		t.Errorf("Expected reset to keep the session id, but got %q", c.SessionID())
	}
}

func TestForgetDropsSession(t *testing.T) {
	s := NewStore()
	c := s.Session("sess")
	c.AddTurn(RoleUser, "hello")
	s.Forget("sess")
	if got := s.Session("sess").Len(); got != 0 {
		t.Errorf("Expected a brand new conversation after forget, but got %d turns", got)
	}
}
