package configstore

import (
	"context"
	"time"

	"github.com/itchyny/gojq"

	"github.com/thoreinstein/clawmgr/internal/errors"
)

// QueryTimeout bounds a single jq evaluation.
const QueryTimeout = time.Second

// ErrInvalidQuery indicates a jq expression that does not parse or compile.
var ErrInvalidQuery = errors.New("invalid jq expression")

// Query evaluates a jq expression against doc and returns every output.
func Query(ctx context.Context, doc Document, expr string) ([]any, error) {
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "parsing %q", expr), ErrInvalidQuery)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "compiling %q", expr), ErrInvalidQuery)
	}

	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	var out []any
	iter := code.RunWithContext(ctx, map[string]any(doc))
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			var haltErr *gojq.HaltError
			if errors.As(err, &haltErr) && haltErr.Value() == nil {
				break
			}
			return nil, errors.Wrapf(err, "evaluating %q", expr)
		}
		out = append(out, v)
	}
	return out, nil
}
