package util

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

var weiPerEther = new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))

// ParseWei returns big.Int of the given decimal wei string.
// An empty string is treated as zero.
func ParseWei(str string) (*big.Int, error) {
	str = strings.TrimSpace(str)
	if len(str) == 0 {
		return big.NewInt(0), nil
	}

	val, ok := new(big.Int).SetString(str, 10)
	if !ok {
		return nil, fmt.Errorf("invalid wei amount: %q", str)
	}
	if val.Sign() < 0 {
		return nil, fmt.Errorf("wei amount cannot be negative: %q", str)
	}

	return val, nil
}

// WeiToEther returns human readable ether value of the given wei amount.
func WeiToEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}

	val := new(big.Float).Quo(new(big.Float).SetInt(wei), weiPerEther)
	return val.Text('f', -1)
}

// HexToBigInt decodes a 0x prefixed hex quantity.
// Leading zeros are accepted since some development nodes pad quantities ("0x01").
func HexToBigInt(hexStr string) (*big.Int, error) {
	if !strings.HasPrefix(hexStr, "0x") && !strings.HasPrefix(hexStr, "0X") {
		return nil, fmt.Errorf("hex quantity without 0x prefix: %q", hexStr)
	}

	digits := hexStr[2:]
	if len(digits) == 0 {
		return nil, fmt.Errorf("empty hex quantity: %q", hexStr)
	}

	digits = strings.TrimLeft(digits, "0")
	if len(digits) == 0 {
		digits = "0"
	}

	z, err := hexutil.DecodeBig("0x" + digits)
	if err != nil {
		return nil, fmt.Errorf("invalid hex quantity %q: %w", hexStr, err)
	}
	return z, nil
}
