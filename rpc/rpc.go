package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"minter/log"
	"time"

	"github.com/valyala/fasthttp"
)

const requestTimeout = 20 * time.Second

var (
	// ErrNoServer is returned when none of the configured servers is reachable.
	ErrNoServer = errors.New("no rpc server available")

	client = &fasthttp.Client{Name: "minter"}
)

type jsonRPCRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int           `json:"id"`
}

type jsonRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *Error          `json:"error"`
}

// Error is the error object of a json rpc response, e.g. a reverted call.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *Error) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("rpc error %d: %s (%v)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func getRPCRequestBody(method string, params []interface{}) []byte {
	if params == nil {
		params = []interface{}{}
	}

	body, err := json.Marshal(jsonRPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	})
	if err != nil {
		panic(fmt.Errorf("can not encode rpc request %s: %s", method, err))
	}

	return body
}

type postResult struct {
	body []byte
	err  error
}

// post sends body to url and returns the raw response body.
// The timeout is capped by the deadline of ctx, and post returns as soon as ctx is done.
func post(ctx context.Context, url string, body []byte, timeout time.Duration) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		timeout = time.Until(deadline)
	}

	// Buffered so that the request goroutine never blocks once ctx is done.
	c := make(chan postResult, 1)
	go func() {
		respBody, err := doPost(url, body, timeout)
		c <- postResult{body: respBody, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-c:
		return r.body, r.err
	}
}

func doPost(url string, body []byte, timeout time.Duration) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod("POST")
	req.Header.SetContentType("application/json")
	req.SetRequestURI(url)
	req.SetBody(body)

	if err := client.DoTimeout(req, resp, timeout); err != nil {
		return nil, err
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("unexpected http status %d from %s", resp.StatusCode(), url)
	}

	respBody := make([]byte, len(resp.Body()))
	copy(respBody, resp.Body())
	return respBody, nil
}

// call sends a json rpc request to one of the available servers.
// Servers failing at transport level are marked unavailable and the next one is tried,
// errors returned by the node itself are never retried.
func call(ctx context.Context, method string, params []interface{}, target interface{}) error {
	requestBody := getRPCRequestBody(method, params)

	var bodyBytes []byte

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		url, ok := getServer()
		if !ok {
			return fmt.Errorf("%s: %w", method, ErrNoServer)
		}

		var err error
		bodyBytes, err = post(ctx, url, requestBody, requestTimeout)
		if err != nil {
			// Cancelled by caller, the server is not to blame.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fmt.Errorf("%s: %w", method, ctxErr)
			}

			log.Error.Printf("%s: %v", url, err)
			serverUnavailable(url)
			continue
		}

		break
	}

	respData := jsonRPCResponse{}
	if err := json.Unmarshal(bodyBytes, &respData); err != nil {
		log.Error.Println(log.Stack(err))
		log.Error.Printf("Request body: %v\n", string(requestBody))
		log.Error.Printf("Response: %v\n", string(bodyBytes))
		return fmt.Errorf("%s: malformed response: %w", method, err)
	}

	if respData.Error != nil {
		return respData.Error
	}

	if target == nil || len(respData.Result) == 0 {
		return nil
	}

	if err := json.Unmarshal(respData.Result, target); err != nil {
		log.Error.Printf("Response: %v\n", string(bodyBytes))
		return fmt.Errorf("%s: can not decode result: %w", method, err)
	}

	return nil
}
