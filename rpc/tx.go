package rpc

import (
	"context"
	"errors"
	"fmt"
	"minter/log"
	"minter/util"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrReceiptTimeout is returned when a transaction is not mined in time.
var ErrReceiptTimeout = errors.New("timed out waiting for transaction receipt")

// TxArgs is the argument of 'eth_sendTransaction'.
// The sender must be an account unlocked on the node.
type TxArgs struct {
	From  common.Address  `json:"from"`
	To    common.Address  `json:"to"`
	Gas   *hexutil.Uint64 `json:"gas,omitempty"`
	Value *hexutil.Big    `json:"value,omitempty"`
	Data  hexutil.Bytes   `json:"data"`
}

// RawReceipt is the result of 'eth_getTransactionReceipt'.
type RawReceipt struct {
	TransactionHash common.Hash     `json:"transactionHash"`
	BlockHash       common.Hash     `json:"blockHash"`
	BlockNumber     hexutil.Uint64  `json:"blockNumber"`
	From            common.Address  `json:"from"`
	To              *common.Address `json:"to"`
	GasUsed         hexutil.Uint64  `json:"gasUsed"`
	// Status is kept as raw quantity, some development nodes pad it ("0x01").
	Status string   `json:"status"`
	Logs   []RawLog `json:"logs"`
}

// Succeeded returns false if the transaction was reverted.
// A missing or malformed status is an error, not a revert.
func (r *RawReceipt) Succeeded() (bool, error) {
	if r.Status == "" {
		return false, fmt.Errorf("receipt of %s has no status", r.TransactionHash.Hex())
	}

	status, err := util.HexToBigInt(r.Status)
	if err != nil {
		return false, fmt.Errorf("receipt of %s: %w", r.TransactionHash.Hex(), err)
	}
	return status.Sign() != 0, nil
}

// RawLog is the inner struct of struct 'RawReceipt'.
type RawLog struct {
	Address  common.Address `json:"address"`
	Topics   []common.Hash  `json:"topics"`
	Data     hexutil.Bytes  `json:"data"`
	LogIndex hexutil.Uint64 `json:"logIndex"`
}

// SendTransaction submits a transaction signed by the node and returns its hash.
func (c *Client) SendTransaction(ctx context.Context, args TxArgs) (common.Hash, error) {
	var hash common.Hash
	if err := call(ctx, "eth_sendTransaction", []interface{}{args}, &hash); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

// GetTransactionReceipt returns the receipt of a mined transaction, nil if still pending.
func (c *Client) GetTransactionReceipt(ctx context.Context, hash common.Hash) (*RawReceipt, error) {
	var receipt *RawReceipt
	if err := call(ctx, "eth_getTransactionReceipt", []interface{}{hash}, &receipt); err != nil {
		return nil, err
	}
	return receipt, nil
}

// WaitReceipt polls the receipt of hash until it is mined.
func (c *Client) WaitReceipt(ctx context.Context, hash common.Hash) (*RawReceipt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.ReceiptTimeout)
	defer cancel()

	interval := c.ReceiptInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for retryTime := 0; ; retryTime++ {
		receipt, err := c.GetTransactionReceipt(ctx, hash)
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if receipt != nil {
			return receipt, nil
		}

		if retryTime > 0 && retryTime%10 == 0 {
			log.Printf("Transaction %s still pending. RetryTime=%d\n", hash.Hex(), retryTime)
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("%s: %w", hash.Hex(), ErrReceiptTimeout)
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
