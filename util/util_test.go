package util

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

func TestEventTopic(t *testing.T) {
	const transfer = "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"
	if got := EventTopic("Transfer(address,address,uint256)"); got != transfer {
		t.Errorf("unexpected Transfer topic %s", got)
	}
}

func TestAddressValid(t *testing.T) {
	if !AddressValid("0xa10746C425A1CAE05cE5e8aBBCD0e358509089b9") {
		t.Error("Checksummed address is valid but function [AddressValid] returns invalid result")
	}

	if !AddressValid("0x54ebf773e93d84e6993bdbf065e3c906a9a8da5b") {
		t.Error("Lower case address is valid but function [AddressValid] returns invalid result")
	}

	if AddressValid("0xa10746c425A1CAE05cE5e8aBBCD0e358509089b9") {
		t.Error("Address checksum is broken but function [AddressValid] returns valid result")
	}

	if AddressValid("0x54EBf773e93D84E6993BDBF065e3c906A9A8Da") {
		t.Error("Address is too short but function [AddressValid] returns valid result")
	}
}

func TestTopicToAddress(t *testing.T) {
	addr := common.HexToAddress("0xa10746C425A1CAE05cE5e8aBBCD0e358509089b9")
	topic := common.BytesToHash(addr.Bytes())

	if TopicToAddress(topic) != addr {
		t.Error("Topic convertion failed")
	}
}

func TestParseWei(t *testing.T) {
	v, err := ParseWei("")
	if err != nil || v.Sign() != 0 {
		t.Errorf("empty wei string should be zero, got %v, %v", v, err)
	}

	v, err = ParseWei("20000000000000000")
	if err != nil {
		t.Fatal(err)
	}
	if WeiToEther(v) != "0.02" {
		t.Errorf("unexpected ether value %s", WeiToEther(v))
	}

	if _, err := ParseWei("0x10"); err == nil {
		t.Error("hex wei string must be rejected")
	}

	if _, err := ParseWei("-1"); err == nil {
		t.Error("negative wei string must be rejected")
	}
}

func TestHexToBigInt(t *testing.T) {
	cases := map[string]int64{
		"0x1b4": 436,
		"0x0":   0,
		"0x01":  1,
		"0x000": 0,
	}

	for str, want := range cases {
		v, err := HexToBigInt(str)
		if err != nil {
			t.Errorf("HexToBigInt(%s) failed: %v", str, err)
			continue
		}
		if v.Cmp(big.NewInt(want)) != 0 {
			t.Errorf("HexToBigInt(%s) = %s, want %d", str, v, want)
		}
	}

	for _, str := range []string{"", "0x", "1b4", "0xzz"} {
		if _, err := HexToBigInt(str); err == nil {
			t.Errorf("HexToBigInt(%q) should fail", str)
		}
	}
}

func TestDurationToHuman(t *testing.T) {
	cases := map[time.Duration]string{
		3725 * time.Second:      "01h 02m 05s",
		125*time.Second + 900e6: "02m 05s",
		7 * time.Second:         "07s",
		-time.Second:            "00s",
	}

	for d, want := range cases {
		if got := DurationToHuman(d); got != want {
			t.Errorf("DurationToHuman(%s) = %s, want %s", d, got, want)
		}
	}
}
