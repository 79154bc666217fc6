package config

import (
	"github.com/xeipuuv/gojsonschema"

	"github.com/rcvtab/tabulator/internal/engine"
)

// rulesSchema is the closed JSON Schema for a rules document. Every key the
// engine understands is listed explicitly and additionalProperties is
// false, so any key outside this set is a schema-validation failure rather
// than something NormalizeBallots or Rules.Validate would need to notice
// later - this is what turns UnknownRuleOption into a single structural
// check (mirroring methodSelection.ValidateConfig's reserved-name rejection
// in vote/methods.go, strengthened with a real schema).
const rulesSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "required": ["candidateNames", "winnerElectionMode", "numberOfWinners"],
  "properties": {
    "tabulatorVersion": {"type": "string"},
    "candidateNames": {"type": "array", "items": {"type": "string"}, "minItems": 1},
    "excludedCandidates": {"type": "array", "items": {"type": "string"}},
    "winnerElectionMode": {
      "type": "string",
      "enum": ["single_winner_majority", "single_winner_plurality", "multi_seat_hare", "multi_seat_droop"]
    },
    "numberOfWinners": {"type": "integer", "minimum": 1},
    "maxRankingsAllowed": {"type": "integer", "minimum": 0},
    "maxSkippedRanksAllowed": {"type": "integer", "minimum": -1},
    "overvoteRule": {
      "type": "string",
      "enum": ["exhaust_immediately", "always_skip_to_next_rank"]
    },
    "duplicateCandidateMode": {
      "type": "string",
      "enum": ["skip_duplicate", "exhaust_ballot", "error"]
    },
    "treatUnrecognizedAsUndeclaredWriteIn": {"type": "boolean"},
    "allowUnrecognizedSkip": {"type": "boolean"},
    "undeclaredWriteInLabel": {"type": "string"},
    "tiebreakMode": {
      "type": "string",
      "enum": ["random", "stop_counting_and_ask", "previous_round_counts_then_random", "use_permutation", "generate_permutation"]
    },
    "randomSeed": {"type": "integer", "minimum": 0},
    "permutation": {"type": "array", "items": {"type": "string"}},
    "batchElimination": {"type": "boolean"},
    "continueUntilTwoCandidatesRemain": {"type": "boolean"},
    "nonIntegerWinningThreshold": {"type": "boolean"}
  }
}`

var rulesSchemaLoader = gojsonschema.NewStringLoader(rulesSchema)

// ValidateSchema checks raw against rulesSchema, returning an
// engine.ErrUnknownRuleOption-classified error on the first structural
// violation - including any key not in the closed set above.
func ValidateSchema(raw []byte) error {
	result, err := gojsonschema.Validate(rulesSchemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return engine.MessageError{Kind: engine.ErrUnknownRuleOption, Msg: err.Error()}
	}
	if result.Valid() {
		return nil
	}

	msg := "rules document failed schema validation:"
	for _, e := range result.Errors() {
		msg += " " + e.String() + ";"
	}
	return engine.MessageError{Kind: engine.ErrUnknownRuleOption, Msg: msg}
}
