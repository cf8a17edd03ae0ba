package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"minter/config"
	"minter/log"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/atomic"
)

const heightTimeout = 3 * time.Second

var (
	// servers stores all rpc urls with its height.
	// For those (temporarily)unaccessable servers,
	// their height will be set to -1.
	servers map[string]int
	sLock   sync.Mutex

	// BestHeight indicates current highest height.
	BestHeight atomic.Int64
)

// ServerInfo is the struct to store rpc current height.
type ServerInfo struct {
	url    string
	height int
}

// getServer randomly returns one of reachable rpc servers.
func getServer() (string, bool) {
	sLock.Lock()
	defer sLock.Unlock()

	candidates := []string{}

	for url, height := range servers {
		if height < 0 {
			continue
		}

		// Prefer localhost rpc server if valid.
		if strings.Contains(url, "127.0.0.1") ||
			strings.Contains(url, "localhost") {
			candidates = append(candidates, url)
		}

		candidates = append(candidates, url)
	}

	l := len(candidates)
	if l == 0 {
		return "", false
	}

	return candidates[rand.Intn(l)], true
}

func serverUnavailable(url string) {
	sLock.Lock()
	defer sLock.Unlock()

	// Incase server changed(e.g., reloaded dut to config file change).
	if _, ok := servers[url]; ok {
		servers[url] = -1
	}
}

// PrintServerStatus prints every configured server with its height.
func PrintServerStatus() {
	sLock.Lock()
	defer sLock.Unlock()

	for host, height := range servers {
		log.Printf("%s: %d\n", host, height)
	}
}

// RefreshServers queries all configured rpc servers and returns the best height,
// -1 if none of them is reachable.
func RefreshServers(ctx context.Context) int {
	return refreshServers(ctx, config.GetRPCs())
}

func refreshServers(ctx context.Context, rpcs []string) int {
	// It takes time to get heights.
	serverInfos := getHeights(ctx, rpcs)

	sLock.Lock()
	defer sLock.Unlock()

	servers = serverInfos
	bestHeight := -1
	for _, height := range serverInfos {
		if bestHeight < height {
			bestHeight = height
		}
	}
	BestHeight.Store(int64(bestHeight))

	return bestHeight
}

// getHeights gets current height of all rpc servers concurrently.
func getHeights(ctx context.Context, rpcs []string) map[string]int {
	c := make(chan ServerInfo, len(rpcs))

	for _, url := range rpcs {
		go func(url string, c chan<- ServerInfo) {
			height, err := getHeightFrom(ctx, url)
			if err != nil {
				log.Error.Printf("%s is unreachable: %v", url, err)
			}
			c <- ServerInfo{
				url:    url,
				height: height,
			}
		}(url, c)
	}

	serverInfos := make(map[string]int)

	for range rpcs {
		s := <-c
		serverInfos[s.url] = s.height
	}

	return serverInfos
}

// getHeightFrom returns current block number of the given rpc server.
func getHeightFrom(ctx context.Context, url string) (int, error) {
	body, err := post(ctx, url, getRPCRequestBody("eth_blockNumber", nil), heightTimeout)
	if err != nil {
		return -1, err
	}

	respData := jsonRPCResponse{}
	if err := json.Unmarshal(body, &respData); err != nil {
		return -1, err
	}
	if respData.Error != nil {
		return -1, respData.Error
	}

	var height hexutil.Uint64
	if err := json.Unmarshal(respData.Result, &height); err != nil {
		return -1, fmt.Errorf("invalid block number %s: %w", string(respData.Result), err)
	}

	return int(height), nil
}
