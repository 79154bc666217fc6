package engine

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestRulesValidate(t *testing.T) {
	for _, tt := range []struct {
		name    string
		rules   Rules
		wantErr bool
	}{
		{
			name: "single seat, one winner: valid",
			rules: Rules{
				CandidateNames:     []string{"A", "B"},
				WinnerElectionMode: SingleWinnerMajority,
				NumberOfWinners:    1,
			},
		},
		{
			name: "single seat, two winners: invalid",
			rules: Rules{
				CandidateNames:     []string{"A", "B"},
				WinnerElectionMode: SingleWinnerMajority,
				NumberOfWinners:    2,
			},
			wantErr: true,
		},
		{
			name: "multi seat, winners exceed candidates: invalid",
			rules: Rules{
				CandidateNames:     []string{"A", "B"},
				WinnerElectionMode: MultiSeatHare,
				NumberOfWinners:    3,
			},
			wantErr: true,
		},
		{
			name: "use_permutation with empty permutation: invalid",
			rules: Rules{
				CandidateNames:     []string{"A", "B"},
				WinnerElectionMode: SingleWinnerMajority,
				NumberOfWinners:    1,
				TiebreakMode:       TiebreakUsePermutation,
			},
			wantErr: true,
		},
		{
			name: "excluded candidate not in candidateNames: invalid",
			rules: Rules{
				CandidateNames:     []string{"A", "B"},
				ExcludedCandidates: []string{"Ghost"},
				WinnerElectionMode: SingleWinnerMajority,
				NumberOfWinners:    1,
			},
			wantErr: true,
		},
		{
			name: "excluding every candidate: invalid",
			rules: Rules{
				CandidateNames:     []string{"A", "B"},
				ExcludedCandidates: []string{"A", "B"},
				WinnerElectionMode: SingleWinnerMajority,
				NumberOfWinners:    1,
			},
			wantErr: true,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rules.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFloorDivPlusOne(t *testing.T) {
	for _, tt := range []struct {
		n        int64
		divisor  int64
		expected int64
	}{
		{n: 100, divisor: 2, expected: 51},
		{n: 101, divisor: 2, expected: 51},
		{n: 99, divisor: 3, expected: 34},
		{n: 0, divisor: 2, expected: 1},
	} {
		got := floorDivPlusOne(decimal.NewFromInt(tt.n), tt.divisor)
		if !got.Equal(decimal.NewFromInt(tt.expected)) {
			t.Errorf("floorDivPlusOne(%d, %d) = %s, want %d", tt.n, tt.divisor, got, tt.expected)
		}
	}
}

func TestFirstRoundQuotaHareVsDroop(t *testing.T) {
	activeVotes := decimal.NewFromInt(100)

	hare := Rules{WinnerElectionMode: MultiSeatHare, NumberOfWinners: 4}
	if got := hare.firstRoundQuota(activeVotes); !got.Equal(decimal.NewFromInt(26)) {
		t.Errorf("hare quota = %s, want 26", got)
	}

	droop := Rules{WinnerElectionMode: MultiSeatDroop, NumberOfWinners: 4}
	if got := droop.firstRoundQuota(activeVotes); !got.Equal(decimal.NewFromInt(21)) {
		t.Errorf("droop quota = %s, want 21", got)
	}
}
