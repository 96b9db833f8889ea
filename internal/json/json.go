package json

import jsoniter "github.com/json-iterator/go"

var (
	// JSON is the jsoniter.API used for every encode and decode in gravsim
	JSON = jsoniter.ConfigCompatibleWithStandardLibrary

	Marshal       = JSON.Marshal
	MarshalIndent = JSON.MarshalIndent
	Unmarshal     = JSON.Unmarshal
	NewDecoder    = JSON.NewDecoder
	NewEncoder    = JSON.NewEncoder
)
