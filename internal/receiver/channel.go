package receiver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sigilnet/sigil/internal/registry"
	"github.com/sigilnet/sigil/pkg/types"
)

// maxAckBody bounds the receiver's response size.
const maxAckBody = 4096

// notification is the JSON body POSTed to a receiver endpoint.
type notification struct {
	Operator types.Address `json:"operator"`
	From     types.Address `json:"from"`
	To       types.Address `json:"to"`
	Token    types.TokenID `json:"token"`
	Data     []byte        `json:"data,omitempty"`
}

// ackResponse is the JSON body a receiver answers with. Code is the
// 4-byte acknowledgment code as 8 hex characters.
type ackResponse struct {
	Code string `json:"code"`
}

// Channel delivers token-received notifications over HTTP. It implements
// the acknowledgment side of the safe-transfer protocol: POST the
// notification to the destination's registered endpoint and parse the
// returned code.
type Channel struct {
	dir  *Directory
	http *http.Client
}

// NewChannel creates a delivery channel backed by the directory.
func NewChannel(dir *Directory, timeout time.Duration) *Channel {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Channel{
		dir:  dir,
		http: &http.Client{Timeout: timeout},
	}
}

// Deliver notifies the destination's endpoint and returns its
// acknowledgment code. Any transport or protocol failure is returned as
// an error; interpreting the code is the caller's concern.
func (c *Channel) Deliver(operator, from, to types.Address, id types.TokenID, data []byte) (registry.AckCode, error) {
	endpoint, err := c.dir.Endpoint(to)
	if err != nil {
		return registry.AckCode{}, err
	}

	body, err := json.Marshal(notification{
		Operator: operator,
		From:     from,
		To:       to,
		Token:    id,
		Data:     data,
	})
	if err != nil {
		return registry.AckCode{}, fmt.Errorf("receiver: encode notification: %w", err)
	}

	resp, err := c.http.Post(endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return registry.AckCode{}, fmt.Errorf("receiver: deliver to %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return registry.AckCode{}, fmt.Errorf("receiver: endpoint %s returned status %d", endpoint, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxAckBody))
	if err != nil {
		return registry.AckCode{}, fmt.Errorf("receiver: read acknowledgment: %w", err)
	}
	var ack ackResponse
	if err := json.Unmarshal(raw, &ack); err != nil {
		return registry.AckCode{}, fmt.Errorf("receiver: decode acknowledgment: %w", err)
	}
	code, err := registry.ParseSelector(ack.Code)
	if err != nil {
		return registry.AckCode{}, fmt.Errorf("receiver: bad acknowledgment code: %w", err)
	}
	return code, nil
}
