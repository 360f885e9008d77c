package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

var errAnswersFormat = errors.New("answers must be an object of question id to string")

// ParseAnswers validates a loosely-typed answers payload: a JSON object whose keys are
// integer question ids and whose values are JSON strings.
func ParseAnswers(raw json.RawMessage) (map[int]string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errAnswersFormat
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, errAnswersFormat
	}

	answers := make(map[int]string, len(fields))
	for key, value := range fields {
		id, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			return nil, errAnswersFormat
		}
		value = bytes.TrimSpace(value)
		if len(value) == 0 || value[0] != '"' {
			return nil, errAnswersFormat
		}
		var text string
		if err := json.Unmarshal(value, &text); err != nil {
			return nil, errAnswersFormat
		}
		answers[id] = text
	}
	return answers, nil
}

// EncodeAnswers renders answers in the wire shape accepted by ParseAnswers.
func EncodeAnswers(answers map[int]string) json.RawMessage {
	wire := make(map[string]string, len(answers))
	for id, text := range answers {
		wire[strconv.Itoa(id)] = text
	}
	raw, err := json.Marshal(wire)
	if err != nil {
		// map[string]string always marshals
		return json.RawMessage(`{}`)
	}
	return raw
}
