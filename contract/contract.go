package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"minter/log"
	"minter/rpc"
	"minter/token"
	"minter/util"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	// ErrNoContract is returned when no code is deployed at the given address.
	ErrNoContract = errors.New("no contract code at address")
	// ErrReverted is returned when a mined transaction has failed status.
	ErrReverted = errors.New("transaction reverted")
)

// Caller is the subset of json rpc calls a token handle needs.
type Caller interface {
	GetCode(ctx context.Context, addr common.Address) ([]byte, error)
	Call(ctx context.Context, msg rpc.CallMsg) ([]byte, error)
	SendTransaction(ctx context.Context, args rpc.TxArgs) (common.Hash, error)
	WaitReceipt(ctx context.Context, hash common.Hash) (*rpc.RawReceipt, error)
}

// Token is the handle of a deployed ERC721 contract.
// Transactions are sent from From, which must be unlocked on the node.
type Token struct {
	Address common.Address
	From    common.Address
	// GasLimit is left to node estimation when zero.
	GasLimit uint64

	caller Caller
}

// At resolves the token contract deployed at address.
func At(ctx context.Context, caller Caller, address, from common.Address) (*Token, error) {
	code, err := caller.GetCode(ctx, address)
	if err != nil {
		return nil, err
	}

	if len(code) == 0 {
		return nil, fmt.Errorf("%s: %w", address.Hex(), ErrNoContract)
	}

	return &Token{
		Address: address,
		From:    from,
		caller:  caller,
	}, nil
}

// call executes a read only method and returns its unpacked outputs.
func (t *Token) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := tokenABI.Pack(method, args...)
	if err != nil {
		return nil, err
	}

	output, err := t.caller.Call(ctx, rpc.CallMsg{
		From: t.From,
		To:   t.Address,
		Data: data,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}

	values, err := tokenABI.Unpack(method, output)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}

	if len(values) == 0 {
		return nil, fmt.Errorf("%s: empty result", method)
	}

	return values, nil
}

// transact sends a state changing method and waits until it is mined.
func (t *Token) transact(ctx context.Context, value *big.Int, method string, args ...interface{}) (*token.Call, *rpc.RawReceipt, error) {
	data, err := tokenABI.Pack(method, args...)
	if err != nil {
		return nil, nil, err
	}

	txArgs := rpc.TxArgs{
		From: t.From,
		To:   t.Address,
		Data: data,
	}

	if t.GasLimit > 0 {
		gas := hexutil.Uint64(t.GasLimit)
		txArgs.Gas = &gas
	}

	if value != nil && value.Sign() > 0 {
		txArgs.Value = (*hexutil.Big)(value)
	}

	log.Printf("Sending %s (%s)\n", method, hexutil.Encode(data[:4]))

	hash, err := t.caller.SendTransaction(ctx, txArgs)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", method, err)
	}

	receipt, err := t.caller.WaitReceipt(ctx, hash)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", method, err)
	}

	succeeded, err := receipt.Succeeded()

	c := &token.Call{
		Method:      method,
		TxHash:      hash,
		BlockNumber: uint64(receipt.BlockNumber),
		GasUsed:     uint64(receipt.GasUsed),
		Succeeded:   succeeded,
	}

	if err != nil {
		return c, receipt, fmt.Errorf("%s: %w", method, err)
	}

	if !c.Succeeded {
		return c, receipt, fmt.Errorf("%s %s: %w", method, hash.Hex(), ErrReverted)
	}

	return c, receipt, nil
}

// Pause sets the paused state of the contract.
func (t *Token) Pause(ctx context.Context, state bool) (*token.Call, error) {
	c, _, err := t.transact(ctx, nil, "pause", state)
	return c, err
}

// Reveal switches token uris to the revealed metadata.
func (t *Token) Reveal(ctx context.Context) (*token.Call, error) {
	c, _, err := t.transact(ctx, nil, "reveal")
	return c, err
}

// Mint mints amount tokens to the sender, value is the wei paid for them.
// Returns ids of the minted tokens decoded from Transfer logs.
func (t *Token) Mint(ctx context.Context, amount uint64, value *big.Int) (*token.Call, []*big.Int, error) {
	c, receipt, err := t.transact(ctx, value, "mint", new(big.Int).SetUint64(amount))
	if err != nil {
		return c, nil, err
	}

	return c, MintedIDs(t.Address, receipt.Logs), nil
}

// TokenURI returns the metadata uri of tokenID.
func (t *Token) TokenURI(ctx context.Context, tokenID uint64) (string, error) {
	values, err := t.call(ctx, "tokenURI", new(big.Int).SetUint64(tokenID))
	if err != nil {
		return "", err
	}

	uri, ok := values[0].(string)
	if !ok {
		return "", fmt.Errorf("tokenURI: unexpected result type %T", values[0])
	}
	return uri, nil
}

// OwnerOf returns the holder of tokenID.
func (t *Token) OwnerOf(ctx context.Context, tokenID *big.Int) (common.Address, error) {
	values, err := t.call(ctx, "ownerOf", tokenID)
	if err != nil {
		return common.Address{}, err
	}

	owner, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("ownerOf: unexpected result type %T", values[0])
	}
	return owner, nil
}

// Holders returns the holder of every token in ids, in the same order.
func (t *Token) Holders(ctx context.Context, ids []*big.Int) ([]token.Holder, error) {
	holders := make([]token.Holder, 0, len(ids))
	for _, id := range ids {
		owner, err := t.OwnerOf(ctx, id)
		if err != nil {
			return holders, fmt.Errorf("token %s: %w", id, err)
		}
		holders = append(holders, token.Holder{TokenID: id, Owner: owner})
	}
	return holders, nil
}

// Name returns the token collection name.
func (t *Token) Name(ctx context.Context) (string, error) {
	return t.callString(ctx, "name")
}

// Symbol returns the token collection symbol.
func (t *Token) Symbol(ctx context.Context) (string, error) {
	return t.callString(ctx, "symbol")
}

// TotalSupply returns the number of minted tokens.
func (t *Token) TotalSupply(ctx context.Context) (*big.Int, error) {
	values, err := t.call(ctx, "totalSupply")
	if err != nil {
		return nil, err
	}

	supply, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("totalSupply: unexpected result type %T", values[0])
	}
	return supply, nil
}

// Summary reads name, symbol and total supply of the contract.
func (t *Token) Summary(ctx context.Context) (*token.Summary, error) {
	name, err := t.Name(ctx)
	if err != nil {
		return nil, err
	}

	symbol, err := t.Symbol(ctx)
	if err != nil {
		return nil, err
	}

	supply, err := t.TotalSupply(ctx)
	if err != nil {
		return nil, err
	}

	return &token.Summary{
		Name:        name,
		Symbol:      symbol,
		TotalSupply: supply,
	}, nil
}

func (t *Token) callString(ctx context.Context, method string) (string, error) {
	values, err := t.call(ctx, method)
	if err != nil {
		return "", err
	}

	s, ok := values[0].(string)
	if !ok {
		return "", fmt.Errorf("%s: unexpected result type %T", method, values[0])
	}
	return s, nil
}

// MintedIDs extracts token ids of Transfer logs from the zero address emitted by contract.
func MintedIDs(contract common.Address, logs []rpc.RawLog) []*big.Int {
	transferTopic := common.HexToHash(util.EventTopic(TransferSignature))
	ids := []*big.Int{}

	for _, l := range logs {
		if l.Address != contract || len(l.Topics) != 4 {
			continue
		}

		if l.Topics[0] != transferTopic {
			continue
		}

		if !util.IsZeroAddress(util.TopicToAddress(l.Topics[1])) {
			continue
		}

		ids = append(ids, l.Topics[3].Big())
	}

	return ids
}
