package essay

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rickchristie/agentloops"
	"github.com/rickchristie/agentloops/schema"
)

// DefaultMaxQueries bounds the queries kept from one research payload.
const DefaultMaxQueries = 3

// QuerySchema validates the research payload {"queries": [string, ...]}.
var QuerySchema = schema.MustCompile(schema.Object(map[string]*schema.Property{
	"queries": schema.Array("Search queries", schema.String("").Build()),
}, "queries"))

// ParseQueries extracts the query payload from model output. The payload is the substring from
// the first "{" to the last "}". At most maxQueries queries are kept; maxQueries <= 0 keeps all.
//
// A missing or invalid payload returns an error wrapping agentloops.ErrMalformedOutput.
func ParseQueries(text string, maxQueries int) ([]string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON object in output", agentloops.ErrMalformedOutput)
	}
	payload := []byte(text[start : end+1])

	if err := QuerySchema.ValidateJSON(payload); err != nil {
		return nil, fmt.Errorf("%w: %w", agentloops.ErrMalformedOutput, err)
	}

	var decoded struct {
		Queries []string `json:"queries"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %w", agentloops.ErrMalformedOutput, err)
	}

	queries := decoded.Queries
	if maxQueries > 0 && len(queries) > maxQueries {
		queries = queries[:maxQueries]
	}
	return queries, nil
}
