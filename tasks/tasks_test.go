package tasks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"testing"

	"minter/contract"
	"minter/log"
	"minter/token"

	"github.com/ethereum/go-ethereum/common"
)

// fakeContract records every call made on the token handle.
type fakeContract struct {
	calls []string
	// fail makes the named step return an error.
	fail   string
	minted uint64
}

var holderAddr = common.HexToAddress("0xa10746C425A1CAE05cE5e8aBBCD0e358509089b9")

func (f *fakeContract) step(name string) (*token.Call, error) {
	f.calls = append(f.calls, name)
	c := &token.Call{
		Method:      name,
		TxHash:      common.BigToHash(big.NewInt(int64(len(f.calls)))),
		BlockNumber: uint64(len(f.calls)),
		Succeeded:   f.fail != name,
	}

	if f.fail == name {
		return c, fmt.Errorf("%s: %w", name, contract.ErrReverted)
	}
	return c, nil
}

func (f *fakeContract) Summary(ctx context.Context) (*token.Summary, error) {
	return &token.Summary{Name: "CourseERC721a", Symbol: "CRS", TotalSupply: big.NewInt(0)}, nil
}

func (f *fakeContract) Pause(ctx context.Context, state bool) (*token.Call, error) {
	if state {
		return nil, errors.New("contract must be unpaused")
	}
	return f.step("pause")
}

func (f *fakeContract) Reveal(ctx context.Context) (*token.Call, error) {
	return f.step("reveal")
}

func (f *fakeContract) Mint(ctx context.Context, amount uint64, value *big.Int) (*token.Call, []*big.Int, error) {
	c, err := f.step("mint")
	if err != nil {
		return c, nil, err
	}

	ids := []*big.Int{}
	for i := uint64(1); i <= amount; i++ {
		ids = append(ids, new(big.Int).SetUint64(f.minted+i))
	}
	f.minted += amount
	return c, ids, nil
}

func (f *fakeContract) Holders(ctx context.Context, ids []*big.Int) ([]token.Holder, error) {
	f.calls = append(f.calls, "holders")
	if f.fail == "holders" {
		return nil, errors.New("ownerOf: execution reverted")
	}

	holders := []token.Holder{}
	for _, id := range ids {
		holders = append(holders, token.Holder{TokenID: id, Owner: holderAddr})
	}
	return holders, nil
}

func (f *fakeContract) TokenURI(ctx context.Context, tokenID uint64) (string, error) {
	f.calls = append(f.calls, "tokenURI")
	return fmt.Sprintf("ipfs://meta/%d.json", tokenID), nil
}

func testPlan() Plan {
	return Plan{
		Label:      "test",
		Contract:   common.HexToAddress("0x54EBf773e93D84E6993BDBF065e3c906A9A8Da5B"),
		Owner:      common.HexToAddress("0xa10746C425A1CAE05cE5e8aBBCD0e358509089b9"),
		MintAmount: 10,
		TokenIndex: 1,
		MintValue:  big.NewInt(0),
	}
}

func resolverFor(c Contract) Resolver {
	return func(ctx context.Context) (Contract, error) {
		return c, nil
	}
}

func TestExecute(t *testing.T) {
	var out bytes.Buffer
	log.InitWith(&out)

	f := &fakeContract{}
	run, err := Execute(context.Background(), testPlan(), resolverFor(f))
	if err != nil {
		t.Fatal(err)
	}

	if got := strings.Join(f.calls, ","); got != "pause,reveal,mint,holders,tokenURI" {
		t.Errorf("unexpected call order %s", got)
	}

	if len(run.Holders) != 10 || run.Holders[9].TokenID.Int64() != 10 || run.Holders[0].Owner != holderAddr {
		t.Errorf("unexpected holders %+v", run.Holders)
	}

	if len(run.Calls) != 3 || run.Calls[2].Method != "mint" {
		t.Errorf("unexpected recorded calls %+v", run.Calls)
	}

	if len(run.MintedIDs) != 10 || run.TokenURI != "ipfs://meta/1.json" {
		t.Errorf("unexpected run result: ids %v, uri %s", run.MintedIDs, run.TokenURI)
	}

	if !run.Succeeded() || run.FinishedAt.Before(run.StartedAt) {
		t.Errorf("unexpected run state %+v", run)
	}

	output := out.String()
	last := -1
	for _, want := range []string{
		"Mint tokens",
		"[1/4] pause(false)",
		"Token 10 held by 0xa10746C425A1CAE05cE5e8aBBCD0e358509089b9",
		"[4/4] tokenURI(1)",
		"All steps done in",
		"tokenURI\n",
		"ipfs://meta/1.json\n",
		"END\n",
	} {
		idx := strings.Index(output, want)
		if idx < 0 {
			t.Errorf("output misses %q:\n%s", want, output)
			continue
		}
		if idx < last {
			t.Errorf("output line %q printed out of order", want)
		}
		last = idx
	}

	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	if !strings.HasSuffix(lines[len(lines)-1], " END") {
		t.Errorf("END must be printed alone on the last line:\n%s", output)
	}
}

func TestExecuteHoldersFailure(t *testing.T) {
	var out bytes.Buffer
	log.InitWith(&out)

	f := &fakeContract{fail: "holders"}
	run, err := Execute(context.Background(), testPlan(), resolverFor(f))
	if err != nil {
		t.Fatalf("holder read failure should not abort the run: %v", err)
	}

	if got := strings.Join(f.calls, ","); got != "pause,reveal,mint,holders,tokenURI" {
		t.Errorf("unexpected call order %s", got)
	}

	if len(run.Holders) != 0 || run.TokenURI == "" || !run.Succeeded() {
		t.Errorf("unexpected run state %+v", run)
	}
}

func TestExecuteNoContract(t *testing.T) {
	var out bytes.Buffer
	log.InitWith(&out)

	resolve := func(ctx context.Context) (Contract, error) {
		return nil, fmt.Errorf("0x00: %w", contract.ErrNoContract)
	}

	run, err := Execute(context.Background(), testPlan(), resolve)
	if !errors.Is(err, contract.ErrNoContract) {
		t.Fatalf("expected ErrNoContract, got %v", err)
	}

	if len(run.Calls) != 0 || run.Succeeded() {
		t.Errorf("no call should be made without contract: %+v", run)
	}

	if strings.Contains(out.String(), "Mint tokens") {
		t.Errorf("procedure should not start:\n%s", out.String())
	}
}

func TestExecuteAbortsOnFailure(t *testing.T) {
	var out bytes.Buffer
	log.InitWith(&out)

	f := &fakeContract{fail: "reveal"}
	run, err := Execute(context.Background(), testPlan(), resolverFor(f))
	if !errors.Is(err, contract.ErrReverted) {
		t.Fatalf("expected ErrReverted, got %v", err)
	}

	if got := strings.Join(f.calls, ","); got != "pause,reveal" {
		t.Errorf("steps after failure must not run, got %s", got)
	}

	if len(run.Calls) != 2 || run.Calls[1].Succeeded {
		t.Errorf("reverted call should be recorded: %+v", run.Calls)
	}

	if run.TokenURI != "" || !strings.Contains(run.Err, "reverted") {
		t.Errorf("unexpected run state %+v", run)
	}

	if strings.Contains(out.String(), "END") {
		t.Errorf("END printed after failure:\n%s", out.String())
	}
}

func TestProgress(t *testing.T) {
	var out bytes.Buffer
	log.InitWith(&out)

	p := newProgress(2)
	p.begin("reveal()")
	p.finish()

	if p.Done != 1 {
		t.Errorf("unexpected done count %d", p.Done)
	}

	if !strings.Contains(out.String(), "[1/2] reveal() done (00s)") {
		t.Errorf("unexpected progress output:\n%s", out.String())
	}
}
