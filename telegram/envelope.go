package telegram

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RawResult is an undecoded result payload.
type RawResult = json.RawMessage

// Response is the {ok, result | error} envelope every Bot API call returns.
// Result is meaningful only when Ok is true; Failure is set only when Ok is false.
type Response[T any] struct {
	Ok      bool
	Result  T
	Failure *Failure
}

// Failure carries the error half of the envelope.
type Failure struct {
	ErrorCode   int                 `json:"error_code,omitempty"`
	Description string              `json:"description,omitempty"`
	Parameters  *ResponseParameters `json:"parameters,omitempty"`
}

// ResponseParameters describes why a request was unsuccessful.
type ResponseParameters struct {
	MigrateToChatID int64 `json:"migrate_to_chat_id,omitempty"`
	RetryAfter      int   `json:"retry_after,omitempty"`
}

// wireResponse is the on-the-wire shape. Ok is a pointer so a missing
// discriminator can be told apart from "ok": false.
type wireResponse struct {
	Ok          *bool               `json:"ok"`
	Result      json.RawMessage     `json:"result,omitempty"`
	ErrorCode   int                 `json:"error_code,omitempty"`
	Description string              `json:"description,omitempty"`
	Parameters  *ResponseParameters `json:"parameters,omitempty"`
}

// MarshalJSON writes the envelope in the Bot API wire format.
func (r Response[T]) MarshalJSON() ([]byte, error) {
	ok := r.Ok
	w := wireResponse{Ok: &ok}
	if r.Ok {
		data, err := json.Marshal(r.Result)
		if err != nil {
			return nil, err
		}
		w.Result = data
	} else if r.Failure != nil {
		w.ErrorCode = r.Failure.ErrorCode
		w.Description = r.Failure.Description
		w.Parameters = r.Failure.Parameters
	}
	return json.Marshal(w)
}

// DecodeResponse parses an envelope and decodes its result into T.
// T may be a scalar, a struct, or a slice.
func DecodeResponse[T any](data []byte) (*Response[T], error) {
	var w wireResponse
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if w.Ok == nil {
		return nil, fmt.Errorf("%w: missing \"ok\" field", ErrMalformedResponse)
	}

	resp := &Response[T]{Ok: *w.Ok}
	if !resp.Ok {
		resp.Failure = &Failure{
			ErrorCode:   w.ErrorCode,
			Description: w.Description,
			Parameters:  w.Parameters,
		}
		return resp, nil
	}

	if len(w.Result) == 0 {
		return nil, fmt.Errorf("%w: missing \"result\" field", ErrMalformedResponse)
	}
	if err := json.Unmarshal(w.Result, &resp.Result); err != nil {
		return nil, fmt.Errorf("%w: result: %w", ErrMalformedResponse, err)
	}
	return resp, nil
}

// decodeResult unmarshals a raw result into T, accepting an explicit null.
func decodeResult[T any](raw RawResult) (T, error) {
	var out T
	if len(bytes.TrimSpace(raw)) == 0 {
		return out, fmt.Errorf("%w: empty result", ErrMalformedResponse)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("%w: result: %w", ErrMalformedResponse, err)
	}
	return out, nil
}
