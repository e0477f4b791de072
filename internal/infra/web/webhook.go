package web

import (
	"bytes"
	"encoding/json"
)

// webhookShape is the tagged parse result over the known provider payload
// envelopes. The provider is not contractually fixed on one shape, so we
// accept both `{"data":{"id":...}}` and `{"id":...}` and fall through to
// shapeNoID explicitly instead of duck-typed defaulting.
type webhookShape string

const (
	shapeDataID  webhookShape = "data_id"
	shapeTopID   webhookShape = "top_id"
	shapeNoID    webhookShape = "no_id"
	shapeBadBody webhookShape = "bad_body"
)

// flexID accepts a payment id sent either as a JSON number or a string; the
// provider uses both across product lines.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

type webhookEnvelope struct {
	ID   flexID `json:"id"`
	Data struct {
		ID flexID `json:"id"`
	} `json:"data"`
}

// parseWebhookBody extracts the payment id from a notification body.
func parseWebhookBody(body []byte) (string, webhookShape) {
	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", shapeBadBody
	}
	if env.Data.ID != "" {
		return string(env.Data.ID), shapeDataID
	}
	if env.ID != "" {
		return string(env.ID), shapeTopID
	}
	return "", shapeNoID
}
