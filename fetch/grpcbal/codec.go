package grpcbal

import "encoding/json"

// jsonCodec marshals request/reply messages as JSON so the balance service
// can be called without generated protobuf stubs.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return "json"
}
