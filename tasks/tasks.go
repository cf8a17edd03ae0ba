package tasks

import (
	"context"
	"fmt"
	"math/big"
	"minter/config"
	"minter/contract"
	"minter/db"
	"minter/log"
	"minter/mail"
	"minter/rpc"
	"minter/token"
	"minter/util"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Plan holds the parameters of one run, snapshotted from config at start.
type Plan struct {
	Label      string
	Contract   common.Address
	Owner      common.Address
	MintAmount uint64
	TokenIndex uint64
	MintValue  *big.Int
	GasLimit   uint64
}

// Contract is the token handle the procedure drives.
type Contract interface {
	Summary(ctx context.Context) (*token.Summary, error)
	Pause(ctx context.Context, state bool) (*token.Call, error)
	Reveal(ctx context.Context) (*token.Call, error)
	Mint(ctx context.Context, amount uint64, value *big.Int) (*token.Call, []*big.Int, error)
	Holders(ctx context.Context, ids []*big.Int) ([]token.Holder, error)
	TokenURI(ctx context.Context, tokenID uint64) (string, error)
}

// Resolver returns the contract handle, failing if no contract is deployed.
type Resolver func(ctx context.Context) (Contract, error)

// PlanFromConfig builds the run plan from the loaded config.
func PlanFromConfig() Plan {
	return Plan{
		Label:      config.GetLabel(),
		Contract:   config.GetContract(),
		Owner:      config.GetOwner(),
		MintAmount: config.GetMintAmount(),
		TokenIndex: config.GetTokenIndex(),
		MintValue:  config.GetMintValue(),
		GasLimit:   config.GetGasLimit(),
	}
}

// Run connects to the configured rpc servers and executes the mint procedure.
func Run(ctx context.Context) (*token.Run, error) {
	plan := PlanFromConfig()

	bestHeight := rpc.RefreshServers(ctx)
	if bestHeight < 0 {
		rpc.PrintServerStatus()
		return nil, rpc.ErrNoServer
	}

	client := rpc.NewClient(config.GetReceiptInterval(), config.GetReceiptTimeout())
	if err := printChainInfo(ctx, client, bestHeight); err != nil {
		return nil, err
	}

	run, err := Execute(ctx, plan, func(ctx context.Context) (Contract, error) {
		tk, err := contract.At(ctx, client, plan.Contract, plan.Owner)
		if err != nil {
			return nil, err
		}
		tk.GasLimit = plan.GasLimit
		return tk, nil
	})

	if db.Enabled() {
		if dbErr := db.SaveRun(run); dbErr != nil {
			log.Error.Printf("Failed to persist run: %v\n", dbErr)
		} else {
			log.Printf("Run persisted with id %d\n", run.ID)
		}
	}

	mail.SendRunReport(run)

	return run, err
}

func printChainInfo(ctx context.Context, client *rpc.Client, bestHeight int) error {
	chainID, err := client.ChainID(ctx)
	if err != nil {
		return err
	}

	log.Printf("Connected: chain id %s, best height %d\n", chainID, bestHeight)

	// Gas price is informational only.
	if gasPrice, err := client.GasPrice(ctx); err == nil {
		gwei := new(big.Int).Div(gasPrice, big.NewInt(1e9))
		log.Printf("Gas price: %s gwei\n", gwei)
	}

	return nil
}

// Execute runs pause(false), reveal(), mint(n) and tokenURI(i) strictly in order.
// The first failure aborts the run, nothing is retried.
func Execute(ctx context.Context, plan Plan, resolve Resolver) (*token.Run, error) {
	run := &token.Run{
		Label:      plan.Label,
		Contract:   plan.Contract,
		Owner:      plan.Owner,
		MintAmount: plan.MintAmount,
		TokenIndex: plan.TokenIndex,
		StartedAt:  time.Now(),
	}

	err := execute(ctx, plan, resolve, run)

	run.FinishedAt = time.Now()
	if err != nil {
		run.Err = err.Error()
	}

	return run, err
}

func execute(ctx context.Context, plan Plan, resolve Resolver, run *token.Run) error {
	c, err := resolve(ctx)
	if err != nil {
		return err
	}

	log.Printf("Contract address: %s\n", plan.Contract.Hex())

	if summary, err := c.Summary(ctx); err != nil {
		log.Printf("Can not read token summary: %v\n", err)
	} else {
		run.Summary = summary
		log.Printf("Token: %s (%s), total supply %s\n", summary.Name, summary.Symbol, summary.TotalSupply)
	}

	log.Println("Mint tokens")
	p := newProgress(4)

	p.begin("pause(false)")
	call, err := c.Pause(ctx, false)
	if err := record(run, call, err); err != nil {
		return err
	}
	p.finish()

	p.begin("reveal()")
	call, err = c.Reveal(ctx)
	if err := record(run, call, err); err != nil {
		return err
	}
	p.finish()

	p.begin(fmt.Sprintf("mint(%d)", plan.MintAmount))
	if plan.MintValue != nil && plan.MintValue.Sign() > 0 {
		log.Printf("Paying %s ether\n", util.WeiToEther(plan.MintValue))
	}
	call, ids, err := c.Mint(ctx, plan.MintAmount, plan.MintValue)
	if err := record(run, call, err); err != nil {
		return err
	}
	run.MintedIDs = ids
	if len(ids) > 0 {
		log.Printf("Minted token ids: %s\n", run.MintedIDsString())
		printHolders(ctx, c, run)
	}
	p.finish()

	p.begin(fmt.Sprintf("tokenURI(%d)", plan.TokenIndex))
	uri, err := c.TokenURI(ctx, plan.TokenIndex)
	if err != nil {
		return err
	}
	run.TokenURI = uri
	p.finish()

	log.Printf("All steps done in %s\n", p.Elapsed())
	log.Println("tokenURI")
	log.Println(uri)
	log.Println("END")

	return nil
}

// printHolders reads the owner of every minted token.
// Tokens are already minted at this point, so a failed read is only logged.
func printHolders(ctx context.Context, c Contract, run *token.Run) {
	holders, err := c.Holders(ctx, run.MintedIDs)
	run.Holders = holders
	if err != nil {
		log.Error.Printf("Can not read token holders: %v\n", err)
	}

	for _, h := range holders {
		log.Printf("Token %s held by %s\n", h.TokenID, h.Owner.Hex())
	}
}

// record appends a mined call to the run, reverted calls included.
func record(run *token.Run, call *token.Call, err error) error {
	if call != nil {
		run.Calls = append(run.Calls, call)
	}
	return err
}
