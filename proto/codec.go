package proto

import (
	jsoniter "github.com/json-iterator/go"
	"google.golang.org/grpc/encoding"
)

// CodecName gRPC content-subtype，實際的 content-type 為 application/grpc+json
const CodecName = "json"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// codec 以 JSON 取代 protobuf 編碼，訊息就是一般的 Go struct
type codec struct{}

func (codec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (codec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func (codec) Name() string {
	return CodecName
}

func init() {
	encoding.RegisterCodec(codec{})
}
