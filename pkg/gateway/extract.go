package gateway

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/storepilot/storepilot/pkg/models"
)

// Extractor turns free response text into a structured result.
type Extractor func(text string) (models.AnalysisResult, error)

// ExtractJSON parses the substring from the first '{' to the last '}' inclusive.
// Text with several objects or stray braces before the payload is not repaired;
// it fails as Unparseable.
func ExtractJSON(text string) (models.AnalysisResult, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return nil, &Error{Kind: Unparseable, Raw: text, Err: errors.New("no JSON object in response")}
	}

	var res models.AnalysisResult
	if err := json.Unmarshal([]byte(text[start:end+1]), &res); err != nil {
		return nil, &Error{Kind: Unparseable, Raw: text, Err: err}
	}
	return res, nil
}
