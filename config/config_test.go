package config

import (
	"io/ioutil"
	"math/big"
	"testing"
	"time"

	"minter/log"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fsnotify/fsnotify"
)

func validConfig() config {
	return config{
		RPCs:       []string{"http://127.0.0.1:8545"},
		Contract:   "0x54EBf773e93D84E6993BDBF065e3c906A9A8Da5B",
		Owner:      "0xa10746C425A1CAE05cE5e8aBBCD0e358509089b9",
		MintAmount: 10,
		TokenIndex: 1,
	}
}

func TestCheck(t *testing.T) {
	c := validConfig()
	if err := check(&c); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := map[string]func(c *config){
		"no rpc":           func(c *config) { c.RPCs = nil },
		"rpc without port": func(c *config) { c.RPCs = []string{"http://127.0.0.1"} },
		"bad contract":     func(c *config) { c.Contract = "0x1234" },
		"bad owner":        func(c *config) { c.Owner = "owner" },
		"zero mint":        func(c *config) { c.MintAmount = 0 },
		"bad mint value":   func(c *config) { c.MintValue = "0.1" },
	}

	for name, mutate := range cases {
		c := validConfig()
		mutate(&c)
		if err := check(&c); err == nil {
			t.Errorf("%s: expected error, got nil", name)
		}
	}
}

func TestUpdate(t *testing.T) {
	c := validConfig()
	c.RPCs = []string{"127.0.0.1:8545", "https://node:443"}
	update(&c)

	if c.RPCs[0] != "http://127.0.0.1:8545" || c.RPCs[1] != "https://node:443" {
		t.Errorf("unexpected rpc urls: %v", c.RPCs)
	}

	if c.ReceiptTimeout != defaultReceiptTimeout || c.ReceiptInterval != defaultReceiptInterval {
		t.Errorf("receipt defaults not applied: %d, %d", c.ReceiptTimeout, c.ReceiptInterval)
	}
}

func TestLoad(t *testing.T) {
	log.InitWith(ioutil.Discard)

	Load(false, "testdata")

	if GetLabel() != "test" {
		t.Errorf("unexpected label %q", GetLabel())
	}

	if rpcs := GetRPCs(); len(rpcs) != 2 || rpcs[0] != "http://localhost:8545" {
		t.Errorf("unexpected rpc urls: %v", rpcs)
	}

	if GetContract() != common.HexToAddress("0x54EBf773e93D84E6993BDBF065e3c906A9A8Da5B") {
		t.Errorf("unexpected contract %s", GetContract().Hex())
	}

	if GetMintAmount() != 3 || GetTokenIndex() != 2 {
		t.Errorf("unexpected mint plan: %d, %d", GetMintAmount(), GetTokenIndex())
	}

	if GetMintValue().Cmp(big.NewInt(20000000000000000)) != 0 {
		t.Errorf("unexpected mint value %s", GetMintValue())
	}

	if GetReceiptTimeout() != 60*time.Second || GetReceiptInterval() != 500*time.Millisecond {
		t.Errorf("unexpected receipt settings: %s, %s", GetReceiptTimeout(), GetReceiptInterval())
	}

	if !DbEnabled() {
		t.Error("db should be enabled when hostname is set")
	}

	const connStr = "minter:secret@tcp(db.local:3306)/mint?charset=utf8mb4&parseTime=True&loc=Local"
	if GetDbConnStr() != connStr {
		t.Errorf("unexpected connection string %s", GetDbConnStr())
	}

	if err := LoadAliyunMailConfig(); err == nil {
		t.Error("empty aliyun mail config should be rejected")
	}
}

func TestReloadHooks(t *testing.T) {
	log.InitWith(ioutil.Discard)

	Load(false, "testdata")

	var reloaded []string
	OnReload(func() {
		reloaded = append(reloaded, GetRPCs()...)
	})

	onConfigChange(fsnotify.Event{Name: "testdata/config.json", Op: fsnotify.Write})

	if len(reloaded) != 2 || reloaded[0] != "http://localhost:8545" {
		t.Errorf("reload hook should see the reloaded rpc urls, got %v", reloaded)
	}
}
