package util

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// AddressValid checks if addr is a 20 bytes hex address.
// Mixed case addresses must carry a valid EIP-55 checksum.
func AddressValid(addr string) bool {
	if !common.IsHexAddress(addr) {
		return false
	}

	body := strings.TrimPrefix(strings.TrimPrefix(addr, "0x"), "0X")
	if body == strings.ToLower(body) || body == strings.ToUpper(body) {
		return true
	}

	return common.HexToAddress(addr).Hex() == "0x"+body
}

// IsZeroAddress returns true if addr is the zero address.
func IsZeroAddress(addr common.Address) bool {
	return addr == common.Address{}
}

// TopicToAddress extracts the address from a 32 bytes indexed log topic.
func TopicToAddress(topic common.Hash) common.Address {
	return common.BytesToAddress(topic.Bytes()[12:])
}
