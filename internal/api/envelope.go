package api

import (
	"github.com/danielgtaylor/huma/v2"
)

// envelopeVersion is the wire protocol version reported in every response.
const envelopeVersion = 1

// Envelope is the uniform response wrapper. Success responses carry data;
// error responses carry either a plain error string or code/message/details.
// The version field is named exactly "v"; clients key on it.
type Envelope struct {
	V       int    `json:"v"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

// EnvelopeTransformer wraps every huma response body in the Envelope.
// Registered on the huma config at server construction.
func EnvelopeTransformer(_ huma.Context, _ string, v any) (any, error) {
	// Already wrapped (a transformer can run more than once in theory).
	if _, ok := v.(*Envelope); ok {
		return v, nil
	}

	if apiErr, ok := v.(*APIError); ok {
		if apiErr.Code != "" {
			return &Envelope{
				V:       envelopeVersion,
				Success: false,
				Code:    apiErr.Code,
				Message: apiErr.Message,
				Details: apiErr.Details,
			}, nil
		}
		return &Envelope{
			V:       envelopeVersion,
			Success: false,
			Error:   apiErr.Message,
		}, nil
	}

	if errModel, ok := v.(*huma.ErrorModel); ok {
		return &Envelope{
			V:       envelopeVersion,
			Success: false,
			Error:   errModel.Detail,
		}, nil
	}

	return &Envelope{
		V:       envelopeVersion,
		Success: true,
		Data:    v,
	}, nil
}
