package weaviate

import (
	"fmt"

	"github.com/go-openapi/strfmt"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"

	"github.com/ragforge/retrieval/document"
)

func asStrfmtUUID(id string) strfmt.UUID {
	return strfmt.UUID(id)
}

// parseGetResponse extracts document.Result values from a GraphQL Get
// response shaped as Data[Get][className] -> []map[string]any, the response
// envelope produced by the weaviate-go-client graphql builder.
func parseGetResponse(resp *graphql.GraphQLResponse, className string, minScore float64) []*document.Result {
	getData, ok := resp.Data["Get"].(map[string]any)
	if !ok {
		return nil
	}

	rows, ok := getData[className].([]any)
	if !ok {
		return nil
	}

	results := make([]*document.Result, 0, len(rows))
	for _, row := range rows {
		obj, ok := row.(map[string]any)
		if !ok {
			continue
		}

		res := &document.Result{Metadata: make(map[string]any)}
		if text, ok := obj[contentProperty].(string); ok {
			res.Text = text
		}

		if additional, ok := obj["_additional"].(map[string]any); ok {
			if id, ok := additional["id"].(string); ok {
				res.ID = id
			}
			if score, ok := additional["score"].(string); ok {
				res.Score = parseScore(score)
			}
		}

		for k, v := range obj {
			if k == contentProperty || k == "_additional" {
				continue
			}
			res.Metadata[k] = v
		}

		if res.Score >= minScore {
			results = append(results, res)
		}
	}
	return results
}

func parseScore(s string) float64 {
	var f float64
	if _, err := fmt.Sscan(s, &f); err != nil {
		return 0
	}
	return f
}
