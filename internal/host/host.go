package host

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/PolarWolf314/sfcpay/internal/credentials"
	kerrors "github.com/PolarWolf314/sfcpay/internal/errors"
)

// Host supplies inputs to the claims workflows.
type Host interface {
	GetCredentials(ctx context.Context) (credentials.Bundle, error)
	GetItemCount() int
	// GetParameter returns "" for parameters that are not set.
	GetParameter(name string, itemIndex int) (string, error)
	ShouldContinueOnFailure() bool
}

// CredentialsResolver produces the credential bundle on demand.
type CredentialsResolver func(ctx context.Context) (credentials.Bundle, error)

// MapHost is a single-item host.
type MapHost struct {
	Params            map[string]string
	ContinueOnFailure bool
	Resolve           CredentialsResolver
}

func (h *MapHost) GetCredentials(ctx context.Context) (credentials.Bundle, error) {
	return resolveCredentials(ctx, h.Resolve)
}

func (h *MapHost) GetItemCount() int { return 1 }

func (h *MapHost) GetParameter(name string, itemIndex int) (string, error) {
	if itemIndex != 0 {
		return "", fmt.Errorf("%w: %d", kerrors.ErrItemIndexOutOfRange, itemIndex)
	}
	return h.Params[name], nil
}

func (h *MapHost) ShouldContinueOnFailure() bool { return h.ContinueOnFailure }

func resolveCredentials(ctx context.Context, resolve CredentialsResolver) (credentials.Bundle, error) {
	if resolve == nil {
		return credentials.Bundle{}, fmt.Errorf("%w: no credential source configured", kerrors.ErrInvalidCredentials)
	}
	return resolve(ctx)
}

// stringify renders a decoded YAML/JSON value as a parameter string.
func stringify(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case uint64:
		return strconv.FormatUint(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format("2006-01-02"), nil
		}
		return t.Format(time.RFC3339), nil
	default:
		raw, err := json.Marshal(normalize(v))
		if err != nil {
			return "", fmt.Errorf("cannot render parameter value of type %T: %w", v, err)
		}
		return string(raw), nil
	}
}

// normalize converts YAML's map[any]any nodes into JSON-encodable maps.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	}
	return v
}
