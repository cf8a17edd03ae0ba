package token

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Call is a state changing contract call with its mined receipt.
type Call struct {
	ID          uint
	RunID       uint
	Method      string
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
	Succeeded   bool
}

// Summary describes the token contract.
type Summary struct {
	Name        string
	Symbol      string
	TotalSupply *big.Int
}

// Holder is the owner of one token.
type Holder struct {
	TokenID *big.Int
	Owner   common.Address
}

// Run is one execution of the mint procedure.
type Run struct {
	ID         uint
	Label      string
	Contract   common.Address
	Owner      common.Address
	MintAmount uint64
	TokenIndex uint64
	Summary    *Summary
	Calls      []*Call
	MintedIDs  []*big.Int
	// Holders of the minted tokens read after minting.
	Holders  []Holder
	TokenURI string
	// Err is empty if all steps succeeded.
	Err        string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Succeeded returns true if the run completed without error.
func (r *Run) Succeeded() bool {
	return r.Err == ""
}

// MintedIDsString joins minted token ids with comma.
func (r *Run) MintedIDsString() string {
	ids := make([]string, len(r.MintedIDs))
	for i, id := range r.MintedIDs {
		ids[i] = id.String()
	}
	return strings.Join(ids, ",")
}

// Lines returns human readable report of the run.
func (r *Run) Lines() []string {
	lines := []string{
		fmt.Sprintf("Contract: %s", r.Contract.Hex()),
		fmt.Sprintf("Owner: %s", r.Owner.Hex()),
	}

	if r.Summary != nil {
		lines = append(lines, fmt.Sprintf("Token: %s (%s), total supply %s", r.Summary.Name, r.Summary.Symbol, r.Summary.TotalSupply))
	}

	for _, c := range r.Calls {
		status := "ok"
		if !c.Succeeded {
			status = "reverted"
		}
		lines = append(lines, fmt.Sprintf("%s: tx %s, block %d, gas %d, %s", c.Method, c.TxHash.Hex(), c.BlockNumber, c.GasUsed, status))
	}

	if len(r.MintedIDs) > 0 {
		lines = append(lines, fmt.Sprintf("Minted %d token(s): %s", len(r.MintedIDs), r.MintedIDsString()))
	}

	for _, h := range r.Holders {
		lines = append(lines, fmt.Sprintf("Token %s held by %s", h.TokenID, h.Owner.Hex()))
	}

	if r.TokenURI != "" {
		lines = append(lines, fmt.Sprintf("tokenURI(%d): %s", r.TokenIndex, r.TokenURI))
	}

	if !r.Succeeded() {
		lines = append(lines, fmt.Sprintf("Error: %s", r.Err))
	}

	return lines
}
