package insights

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/tukey-analytics/tukey/internal/types"
)

// MaxProducts is the largest number of products a query may name
const MaxProducts = 5

const querySchemaURL = "https://tukey.local/schemas/aiquery.schema.json"

//go:embed aiquery.schema.json
var querySchemaJSON []byte

var (
	querySchema     *jsonschema.Schema
	querySchemaErr  error
	querySchemaOnce sync.Once
)

func compiledQuerySchema() (*jsonschema.Schema, error) {
	querySchemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(querySchemaJSON))
		if err != nil {
			querySchemaErr = fmt.Errorf("query schema is not valid JSON: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		if err := c.AddResource(querySchemaURL, doc); err != nil {
			querySchemaErr = fmt.Errorf("failed to add query schema: %w", err)
			return
		}
		querySchema, querySchemaErr = c.Compile(querySchemaURL)
	})
	return querySchema, querySchemaErr
}

// QueryError is returned when a query is incomplete. Message is suitable for display.
type QueryError struct {
	Message string
	Err     error
}

func (e *QueryError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

var (
	msgMissingInformation = "Please fill in all fields and add at least one product."
	msgTooManyProducts    = fmt.Sprintf("You can add at most %d products.", MaxProducts)
)

// ValidateQuery checks that every field is filled in and that 1 to 5 products are named
func ValidateQuery(q types.AIQuery) error {
	schema, err := compiledQuerySchema()
	if err != nil {
		return err
	}

	raw, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("failed to encode query: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to decode query: %w", err)
	}

	if err := schema.Validate(inst); err != nil {
		var verr *jsonschema.ValidationError
		if !errors.As(err, &verr) {
			return err
		}
		msg := msgMissingInformation
		if len(q.TopProducts) > MaxProducts {
			msg = msgTooManyProducts
		}
		return &QueryError{Message: msg, Err: err}
	}
	return nil
}
