package extraction

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoStructuredData is returned when the response text contains no JSON
// object to parse.
var ErrNoStructuredData = errors.New("no structured data found in response")

// parseBoletoJSON parses the extraction service's response text. Models
// tend to wrap the JSON in conversational text or markdown fences, so the
// candidate payload is the inclusive substring between the first '{' and
// the last '}'. A brace inside a string value can defeat this, but a
// stricter locator would change which malformed responses are accepted.
func parseBoletoJSON(text string) (*BoletoData, error) {
	text = strings.TrimSpace(text)

	startIdx := strings.Index(text, "{")
	endIdx := strings.LastIndex(text, "}")
	if startIdx == -1 || endIdx == -1 || endIdx < startIdx {
		return nil, ErrNoStructuredData
	}

	text = text[startIdx : endIdx+1]

	var data BoletoData
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	return &data, nil
}
