package wsgateway

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/yndnr/meshbbs-go/internal/core/domain"
)

// Frame types.
const (
	FrameHello    = "hello"
	FrameNode     = "node"
	FrameText     = "text"
	FrameSendText = "send_text"
)

//go:embed frame.schema.json
var frameSchemaJSON string

func compileFrameSchema() (*jsonschema.Schema, error) {
	return jsonschema.CompileString("frame.schema.json", frameSchemaJSON)
}

// Frame is one JSON message exchanged with the radio bridge.
type Frame struct {
	Type string `json:"type"`

	// hello
	NodeID    string `json:"node_id,omitempty"`
	ShortName string `json:"short_name,omitempty"`
	LongName  string `json:"long_name,omitempty"`

	// node
	Node *NodeFrame `json:"node,omitempty"`

	// text and send_text
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
	Text   string `json:"text,omitempty"`
	RxTime int64  `json:"rx_time,omitempty"`
}

// NodeFrame describes a node the radio has heard.
type NodeFrame struct {
	ID           string `json:"id"`
	ShortName    string `json:"short_name,omitempty"`
	LongName     string `json:"long_name,omitempty"`
	HwModel      string `json:"hw_model,omitempty"`
	Role         string `json:"role,omitempty"`
	LastHeard    int64  `json:"last_heard,omitempty"`
	BatteryLevel *int   `json:"battery_level,omitempty"`
}

// Info converts the frame to a directory entry.
func (n *NodeFrame) Info() domain.NodeInfo {
	info := domain.NodeInfo{
		ID:           domain.NodeID(n.ID),
		ShortName:    n.ShortName,
		LongName:     n.LongName,
		HwModel:      n.HwModel,
		Role:         n.Role,
		BatteryLevel: domain.BatteryUnknown,
	}
	if n.LastHeard > 0 {
		info.LastHeard = time.Unix(n.LastHeard, 0)
	}
	if n.BatteryLevel != nil {
		info.BatteryLevel = *n.BatteryLevel
	}
	return info
}

// decodeFrame validates raw against the frame schema and decodes it.
func decodeFrame(schema *jsonschema.Schema, raw []byte) (*Frame, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("frame is not JSON: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("invalid frame: %w", err)
	}
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return &f, nil
}
