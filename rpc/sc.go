package rpc

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Client issues typed ethereum json rpc calls against the server pool.
type Client struct {
	// ReceiptInterval is the delay between two receipt polls.
	ReceiptInterval time.Duration
	// ReceiptTimeout bounds how long WaitReceipt waits for a transaction to be mined.
	ReceiptTimeout time.Duration
}

// NewClient returns a client polling receipts every interval until timeout.
func NewClient(interval, timeout time.Duration) *Client {
	return &Client{
		ReceiptInterval: interval,
		ReceiptTimeout:  timeout,
	}
}

// CallMsg is the argument of 'eth_call'.
type CallMsg struct {
	From common.Address `json:"from"`
	To   common.Address `json:"to"`
	Data hexutil.Bytes  `json:"data"`
}

// GetCode returns the runtime bytecode deployed at addr.
func (c *Client) GetCode(ctx context.Context, addr common.Address) ([]byte, error) {
	var result hexutil.Bytes
	params := []interface{}{addr, "latest"}
	if err := call(ctx, "eth_getCode", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Call executes a read only contract call at the latest block.
func (c *Client) Call(ctx context.Context, msg CallMsg) ([]byte, error) {
	var result hexutil.Bytes
	params := []interface{}{msg, "latest"}
	if err := call(ctx, "eth_call", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}
