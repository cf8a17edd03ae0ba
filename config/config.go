package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"minter/log"
	"minter/util"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const (
	defaultReceiptTimeout  = 60
	defaultReceiptInterval = 500
)

type config struct {
	// Label sets log output prefix.
	Label string

	RPCs []string `mapstructure:"rpc_url"`

	// Contract is the address of the deployed token contract.
	Contract string
	// Owner is the unlocked node account which sends all transactions.
	Owner string

	MintAmount uint64 `mapstructure:"mint_amount"`
	TokenIndex uint64 `mapstructure:"token_index"`
	// MintValue is the decimal wei amount attached to the mint transaction.
	MintValue string `mapstructure:"mint_value"`
	// GasLimit is left to node estimation when zero.
	GasLimit uint64 `mapstructure:"gas_limit"`

	// ReceiptTimeout in seconds.
	ReceiptTimeout int `mapstructure:"receipt_timeout"`
	// ReceiptInterval in milliseconds.
	ReceiptInterval int `mapstructure:"receipt_interval"`

	// MySQL configs, run records are not persisted if Hostname is empty.
	User     string
	Password string `json:"-"`
	Hostname string
	Port     string
	Database string

	// AliyunMail is an optional config which will be used in mail alert package.
	AliyunMail AliyunMailConfig `mapstructure:"aliyun_mail"`
}

// AliyunMailConfig is the struct for aliyun mail configs.
type AliyunMailConfig struct {
	AccountName     string
	Region          string
	AccessKeyID     string
	AccessKeySecret string `json:"-"`
	Receiver        []string
}

var (
	cfg  config
	lock sync.RWMutex

	// reloadHooks run after a changed config file was loaded successfully.
	reloadHooks []func()
	hookLock    sync.Mutex
)

// OnReload registers f to be called after every successful config reload.
func OnReload(f func()) {
	hookLock.Lock()
	defer hookLock.Unlock()

	reloadHooks = append(reloadHooks, f)
}

func runReloadHooks() {
	hookLock.Lock()
	hooks := make([]func(), len(reloadHooks))
	copy(hooks, reloadHooks)
	hookLock.Unlock()

	for _, f := range hooks {
		f()
	}
}

// Load reads config file from ./config (or dir if given) and panics on invalid content.
func Load(display bool, dir ...string) {
	viper.SetConfigName("config")
	for _, d := range dir {
		viper.AddConfigPath(d)
	}
	viper.AddConfigPath("./config")
	// Incase test cases require loading configs.
	viper.AddConfigPath("../config")

	if err := load(display); err != nil {
		panic(err)
	}

	log.UpdatePrefix(GetLabel())

	viper.WatchConfig()
	viper.OnConfigChange(onConfigChange)
}

func load(display bool) error {
	err := viper.ReadInConfig()
	if err != nil {
		return err
	}

	var c config
	err = viper.Unmarshal(&c)
	if err != nil {
		return err
	}

	update(&c)

	if err := check(&c); err != nil {
		return err
	}

	if display {
		configContent, _ := json.MarshalIndent(c, "", "    ")
		log.Println(string(configContent))
	}

	lock.Lock()
	cfg = c
	lock.Unlock()

	return nil
}

func update(c *config) {
	for i := 0; i < len(c.RPCs); i++ {
		rpc := c.RPCs[i]
		if !strings.HasPrefix(rpc, "http") {
			c.RPCs[i] = "http://" + rpc
		}
	}

	if c.ReceiptTimeout <= 0 {
		c.ReceiptTimeout = defaultReceiptTimeout
	}

	if c.ReceiptInterval <= 0 {
		c.ReceiptInterval = defaultReceiptInterval
	}
}

// GetDbConnStr returns mysql connection string.
func GetDbConnStr() string {
	lock.RLock()
	defer lock.RUnlock()

	str := fmt.Sprintf(
		"%s:%s@tcp(%s:%s)/%s",
		cfg.User,
		cfg.Password,
		cfg.Hostname,
		cfg.Port,
		cfg.Database,
	)

	params := []string{
		"charset=utf8mb4",
		"parseTime=True",
		"loc=Local",
	}

	return fmt.Sprintf("%s?%s", str, strings.Join(params, "&"))
}

// DbEnabled returns true if mysql hostname is configured.
func DbEnabled() bool {
	lock.RLock()
	defer lock.RUnlock()

	return cfg.Hostname != ""
}

// GetLabel returns custome label as console output prefix.
func GetLabel() string {
	lock.RLock()
	defer lock.RUnlock()

	return cfg.Label
}

// GetRPCs returns all rpc urls from config.
func GetRPCs() []string {
	lock.RLock()
	defer lock.RUnlock()

	rpcs := make([]string, len(cfg.RPCs))
	copy(rpcs, cfg.RPCs)
	return rpcs
}

// GetContract returns the token contract address.
func GetContract() common.Address {
	lock.RLock()
	defer lock.RUnlock()

	return common.HexToAddress(cfg.Contract)
}

// GetOwner returns the sender account address.
func GetOwner() common.Address {
	lock.RLock()
	defer lock.RUnlock()

	return common.HexToAddress(cfg.Owner)
}

// GetMintAmount returns how many tokens will be minted.
func GetMintAmount() uint64 {
	lock.RLock()
	defer lock.RUnlock()

	return cfg.MintAmount
}

// GetTokenIndex returns the token id whose uri is printed.
func GetTokenIndex() uint64 {
	lock.RLock()
	defer lock.RUnlock()

	return cfg.TokenIndex
}

// GetMintValue returns wei attached to the mint transaction.
func GetMintValue() *big.Int {
	lock.RLock()
	defer lock.RUnlock()

	// Validated in check.
	v, _ := util.ParseWei(cfg.MintValue)
	return v
}

// GetGasLimit returns the configured gas limit, zero means node estimation.
func GetGasLimit() uint64 {
	lock.RLock()
	defer lock.RUnlock()

	return cfg.GasLimit
}

// GetReceiptTimeout returns how long to wait for a transaction to be mined.
func GetReceiptTimeout() time.Duration {
	lock.RLock()
	defer lock.RUnlock()

	return time.Duration(cfg.ReceiptTimeout) * time.Second
}

// GetReceiptInterval returns the receipt polling interval.
func GetReceiptInterval() time.Duration {
	lock.RLock()
	defer lock.RUnlock()

	return time.Duration(cfg.ReceiptInterval) * time.Millisecond
}

// LoadAliyunMailConfig performs a basic check on aliyun mail config.
func LoadAliyunMailConfig() error {
	lock.RLock()
	defer lock.RUnlock()

	return checkAliyunMail(cfg.AliyunMail)
}

// GetAliyunMailConfig returns aliyun mail configs.
func GetAliyunMailConfig() AliyunMailConfig {
	lock.RLock()
	defer lock.RUnlock()

	return cfg.AliyunMail
}

func check(c *config) error {
	if err := checkRPCs(c.RPCs); err != nil {
		return err
	}

	if err := checkAddresses(c); err != nil {
		return err
	}

	if c.MintAmount < 1 {
		return errors.New("value of 'mint_amount' must greater than or equal to 1")
	}

	if _, err := util.ParseWei(c.MintValue); err != nil {
		return err
	}

	return nil
}

func checkRPCs(rpcs []string) error {
	if len(rpcs) < 1 {
		return errors.New("at least 1 rpc server url must be set")
	}

	for _, rpc := range rpcs {
		if strings.HasPrefix(rpc, "http") {
			u, err := url.Parse(rpc)
			if err != nil {
				return err
			}
			rpc = u.Host
		}

		_, _, err := net.SplitHostPort(rpc)
		if err != nil {
			return err
		}
	}

	return nil
}

func checkAddresses(c *config) error {
	if !util.AddressValid(c.Contract) {
		return fmt.Errorf("invalid contract address: %q", c.Contract)
	}

	if !util.AddressValid(c.Owner) {
		return fmt.Errorf("invalid owner address: %q", c.Owner)
	}

	return nil
}

func checkAliyunMail(m AliyunMailConfig) error {
	if m.AccountName == "" {
		return errors.New("aliyun mail account name cannot be empty")
	}

	if m.Region == "" {
		return errors.New("aliyun mail region cannot be empty")
	}

	if m.AccessKeyID == "" {
		return errors.New("aliyun mail accessKeyID cannot be empty")
	}

	if m.AccessKeySecret == "" {
		return errors.New("aliyun mail accessKeySecret cannot be empty")
	}

	if len(m.Receiver) == 0 {
		return errors.New("aliyun mail receiver cannot be empty")
	}

	return nil
}

func onConfigChange(e fsnotify.Event) {
	log.Printf("Config file change detected: %s", e.Name)

	const stdErr = "Failed to read new configuration, current configuration stay unchanged"

	if err := load(true); err != nil {
		log.Printf("%s: %s", stdErr, err)
		return
	}

	log.UpdatePrefix(GetLabel())
	runReloadHooks()
}
