package config_test

import (
	"testing"

	"github.com/rcvtab/tabulator/internal/config"
	"github.com/rcvtab/tabulator/internal/engine"
)

func TestParseValidDocument(t *testing.T) {
	raw := []byte(`{
		"candidateNames": ["Amy", "Bob", "Cara"],
		"winnerElectionMode": "single_winner_majority",
		"numberOfWinners": 1,
		"tiebreakMode": "random",
		"randomSeed": 7
	}`)

	rules, err := config.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rules.WinnerElectionMode != engine.SingleWinnerMajority {
		t.Errorf("unexpected winnerElectionMode: %v", rules.WinnerElectionMode)
	}
	if rules.MaxSkippedRanksAllowed != -1 {
		t.Errorf("expected default maxSkippedRanksAllowed=-1, got %d", rules.MaxSkippedRanksAllowed)
	}
}

func TestParseAcceptsTabulatorVersionAsInformational(t *testing.T) {
	raw := []byte(`{
		"tabulatorVersion": "1.3.0",
		"candidateNames": ["Amy", "Bob"],
		"winnerElectionMode": "single_winner_majority",
		"numberOfWinners": 1
	}`)

	if _, err := config.Parse(raw); err != nil {
		t.Fatalf("Parse: expected tabulatorVersion to be accepted as informational, got %v", err)
	}
}

func TestParseRejectsUnknownKey(t *testing.T) {
	raw := []byte(`{
		"candidateNames": ["Amy", "Bob"],
		"winnerElectionMode": "single_winner_majority",
		"numberOfWinners": 1,
		"unknownOption": true
	}`)

	_, err := config.Parse(raw)
	if err == nil {
		t.Fatalf("expected an error for an unrecognized top-level key")
	}
}

func TestParseRejectsUnknownEnumValue(t *testing.T) {
	raw := []byte(`{
		"candidateNames": ["Amy", "Bob"],
		"winnerElectionMode": "ranked_pairs",
		"numberOfWinners": 1
	}`)

	_, err := config.Parse(raw)
	if err == nil {
		t.Fatalf("expected an error for an unrecognized winnerElectionMode")
	}
}

func TestParseMultiSeat(t *testing.T) {
	raw := []byte(`{
		"candidateNames": ["Amy", "Bob", "Cara", "Dan"],
		"winnerElectionMode": "multi_seat_droop",
		"numberOfWinners": 2
	}`)

	rules, err := config.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !rules.IsMultiSeat() {
		t.Errorf("expected IsMultiSeat() true")
	}
}
