package contract

import (
	_ "embed"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// TransferSignature is the canonical signature of the ERC721 Transfer event.
const TransferSignature = "Transfer(address,address,uint256)"

//go:embed erc721.abi.json
var erc721ABIJSON string

var tokenABI abi.ABI

func init() {
	var err error
	tokenABI, err = abi.JSON(strings.NewReader(erc721ABIJSON))
	if err != nil {
		panic(err)
	}
}
