// Package types holds the shared data model for the vizard data agent:
// wire envelopes, artifacts, classification and resolution results, and the
// in-memory catalog snapshot.
package types

import "encoding/json"

// Role identifies a party on the session channel.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleDataAgent Role = "data_agent"
	RoleRuntime   Role = "runtime"
)

// Peer addresses one end of an envelope exchange.
type Peer struct {
	Role Role   `json:"role,omitempty"`
	ID   string `json:"id,omitempty"`
}

// Envelope is the typed, correlated message unit exchanged over the duplex
// session. ID correlates request and response; Type selects the handler.
type Envelope struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	From    *Peer           `json:"from,omitempty"`
	To      *Peer           `json:"to,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Envelope types consumed and produced by the session manager. Every consumed
// type has a corresponding *_res type echoing the triggering id.
const (
	TypeDataReq       = "data_req"
	TypeDataRes       = "data_res"
	TypeWarehouseReq  = "warehouse_req"
	TypeWarehouseRes  = "warehouse_res"
	TypePromptReq     = "prompt_req"
	TypePromptRes     = "prompt_res"
	TypeCatalogUpdate = "catalog_update"
	TypeCatalogRes    = "catalog_update_res"
	TypeLoginReq      = "login_req"
	TypeLoginRes      = "login_res"
	TypeVerifyReq     = "verify_token_req"
	TypeVerifyRes     = "verify_token_res"
)

// ResponseType maps a consumed envelope type to the type of its response.
// Unknown types map to themselves with a _res suffix.
func ResponseType(reqType string) string {
	switch reqType {
	case TypeDataReq:
		return TypeDataRes
	case TypeWarehouseReq:
		return TypeWarehouseRes
	case TypePromptReq:
		return TypePromptRes
	case TypeCatalogUpdate:
		return TypeCatalogRes
	case TypeLoginReq:
		return TypeLoginRes
	case TypeVerifyReq:
		return TypeVerifyRes
	default:
		return reqType + "_res"
	}
}

// Reply builds a response envelope carrying the same id with from/to swapped.
// Each handler emits at most one reply per received id.
func (e *Envelope) Reply(payload any) (*Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		ID:      e.ID,
		Type:    ResponseType(e.Type),
		From:    e.To,
		To:      e.From,
		Payload: raw,
	}, nil
}
