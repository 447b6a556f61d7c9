package queue

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/alexindevs/roomey-api/internal/domain"
)

var jobSchema = mustCompileJobSchema()

func mustCompileJobSchema() *gojsonschema.Schema {
	channels := make([]interface{}, 0, len(domain.AllChannels))
	for _, c := range domain.AllChannels {
		channels = append(channels, string(c))
	}
	purposes := make([]interface{}, 0, len(domain.AllActionTags))
	for _, a := range domain.AllActionTags {
		purposes = append(purposes, string(a))
	}

	def := map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"jobId", "userId", "title", "type", "purpose"},
		"properties": map[string]interface{}{
			"jobId":       map[string]interface{}{"type": "string", "minLength": 1},
			"userId":      map[string]interface{}{"type": "string", "minLength": 1},
			"title":       map[string]interface{}{"type": "string", "minLength": 1},
			"description": map[string]interface{}{"type": "string"},
			"type": map[string]interface{}{
				"type":        "array",
				"minItems":    1,
				"uniqueItems": true,
				"items":       map[string]interface{}{"enum": channels},
			},
			"purpose":    map[string]interface{}{"enum": purposes},
			"enqueuedAt": map[string]interface{}{"type": "string"},
		},
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(def))
	if err != nil {
		panic(fmt.Sprintf("queue: invalid job schema: %v", err))
	}
	return schema
}

// DecodeJob checks a raw record value against the job contract and decodes
// it. Every failure wraps domain.ErrInvalidJob.
func DecodeJob(raw []byte) (*domain.NotificationJob, error) {
	result, err := jobSchema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidJob, err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidJob, strings.Join(errs, "; "))
	}

	var job domain.NotificationJob
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidJob, err)
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}
	return &job, nil
}
