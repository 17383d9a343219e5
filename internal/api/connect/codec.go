package connect

import (
	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	"github.com/goccy/go-json"
)

// jsonCodec marshals plain Go messages as JSON. It registers under the
// "json" name, replacing the protobuf based default.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal message")
	}
	return data, nil
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return errors.Wrap(err, "failed to unmarshal message")
	}
	return nil
}

// WithJSON is the codec option shared by handlers and clients.
func WithJSON() connect.Option {
	return connect.WithCodec(jsonCodec{})
}

var _ connect.Codec = jsonCodec{}
