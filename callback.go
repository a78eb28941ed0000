package tgroute

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const callbackSeparator = "|"

// maxCallbackData is the platform limit for callback payloads, in bytes.
const maxCallbackData = 64

// CallbackData encodes a payload for a named callback handler:
// name + "|" + JSON array of args. Without args the payload is just name.
func CallbackData(name string, args ...any) (string, error) {
	if name == "" || strings.Contains(name, callbackSeparator) {
		return "", fmt.Errorf("%w: bad handler name %q", ErrInvalidCallbackData, name)
	}
	data := name
	if len(args) > 0 {
		encoded, err := json.Marshal(args)
		if err != nil {
			return "", fmt.Errorf("encode callback args: %w", err)
		}
		data += callbackSeparator + string(encoded)
	}
	if len(data) > maxCallbackData {
		return "", fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidCallbackData, len(data), maxCallbackData)
	}
	return data, nil
}

// ParseCallbackData splits a named payload into the handler name and its
// arguments. Numbers decode as json.Number.
func ParseCallbackData(data string) (string, Args, error) {
	name, encoded, found := strings.Cut(data, callbackSeparator)
	if !found || encoded == "" {
		return name, nil, nil
	}
	args, err := decodeArgs(encoded)
	if err != nil {
		return name, nil, err
	}
	return name, args, nil
}

func decodeArgs(encoded string) (Args, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(encoded)))
	dec.UseNumber()
	var args []any
	if err := dec.Decode(&args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCallbackData, err)
	}
	return Args(args), nil
}
