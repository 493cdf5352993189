package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/buger/jsonparser"
	"github.com/thrasher-corp/gctwithdraw/common"
	"github.com/thrasher-corp/gctwithdraw/common/crypto"
	exchange "github.com/thrasher-corp/gctwithdraw/exchanges"
	"github.com/thrasher-corp/gctwithdraw/exchanges/request"
	"github.com/thrasher-corp/gctwithdraw/log"
)

// Binance is the overarching type across the Binance package
type Binance struct {
	exchange.Base
}

const (
	apiURL = "https://api.binance.com"

	// Public endpoints
	serverTime  = "/api/v3/time"
	symbolPrice = "/api/v3/ticker/price"

	// Authenticated endpoints
	accountInfo     = "/api/v3/account"
	allCoinsInfo    = "/sapi/v1/capital/config/getall"
	fundingAsset    = "/sapi/v1/asset/get-funding-asset"
	withdrawApply   = "/sapi/v1/capital/withdraw/apply"
	withdrawHistory = "/sapi/v1/capital/withdraw/history"

	apiKeyHeader = "X-MBX-APIKEY"

	// Error codes for a rejected timestamp or signature
	timestampOutsideRecvWindow = -1021
	invalidSignature           = -1022
)

var (
	errAPIRejected       = errors.New("request rejected")
	errWithdrawIDEmpty   = errors.New("withdrawal ID is empty")
	errWithdrawMissing   = errors.New("asset, address and amount must not be empty")
	errInvalidStatusCode = errors.New("invalid withdrawal status")
	errSymbolEmpty       = errors.New("symbol cannot be empty")
)

// GetServerTime returns the exchange server time
func (b *Binance) GetServerTime(ctx context.Context) (time.Time, error) {
	var resp ServerTime
	if err := b.SendHTTPRequest(ctx, serverTime, request.UnAuth, &resp); err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(resp.ServerTime), nil
}

// GetSymbolPrice returns the latest price for a symbol
func (b *Binance) GetSymbolPrice(ctx context.Context, symbol string) (*SymbolPrice, error) {
	if symbol == "" {
		return nil, errSymbolEmpty
	}
	params := url.Values{}
	params.Set("symbol", strings.ToUpper(symbol))
	var resp SymbolPrice
	return &resp, b.SendHTTPRequest(ctx, common.EncodeURLValues(symbolPrice, params), request.UnAuth, &resp)
}

// GetAccount returns binance user accounts
func (b *Binance) GetAccount(ctx context.Context) (*Account, error) {
	var resp Account
	return &resp, b.SendAuthHTTPRequest(ctx, http.MethodGet, accountInfo, nil, request.Auth, &resp)
}

// GetFundingAsset returns funding wallet balances, an empty asset returns all
func (b *Binance) GetFundingAsset(ctx context.Context, asset string) ([]FundingAsset, error) {
	params := url.Values{}
	if asset != "" {
		params.Set("asset", strings.ToUpper(asset))
	}
	var resp []FundingAsset
	return resp, b.SendAuthHTTPRequest(ctx, http.MethodPost, fundingAsset, params, request.Auth, &resp)
}

// GetAllCoinsInfo returns details about all supported coins(available for deposit and withdraw)
func (b *Binance) GetAllCoinsInfo(ctx context.Context) ([]CoinInfo, error) {
	var resp []CoinInfo
	if err := b.SendAuthHTTPRequest(ctx,
		http.MethodGet,
		allCoinsInfo,
		nil,
		request.Auth,
		&resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// WithdrawCrypto sends cryptocurrency to the address of your choosing. The
// request is never retried.
func (b *Binance) WithdrawCrypto(ctx context.Context, cryptoAsset, withdrawOrderID, network, address, addressTag, amount string) (string, error) {
	if cryptoAsset == "" || address == "" || amount == "" {
		return "", errWithdrawMissing
	}

	params := url.Values{}
	params.Set("coin", strings.ToUpper(cryptoAsset))
	params.Set("address", address)
	params.Set("amount", amount)

	// optional params
	if withdrawOrderID != "" {
		params.Set("withdrawOrderId", withdrawOrderID)
	}
	if network != "" {
		params.Set("network", strings.ToUpper(network))
	}
	if addressTag != "" {
		params.Set("addressTag", addressTag)
	}

	var resp WithdrawResponse
	if err := b.SendAuthHTTPRequest(request.WithRetryNotAllowed(ctx),
		http.MethodPost,
		withdrawApply,
		params,
		request.Auth,
		&resp); err != nil {
		return "", err
	}

	if resp.ID == "" {
		return "", errWithdrawIDEmpty
	}

	return resp.ID, nil
}

// WithdrawHistory gets the status of recent withdrawals
// status `param` used as string to prevent default value 0 (for int) interpreting as EmailSent status
func (b *Binance) WithdrawHistory(ctx context.Context, coin, status string, startTime, endTime time.Time, offset, limit int) ([]WithdrawStatusResponse, error) {
	params := url.Values{}
	if coin != "" {
		params.Set("coin", strings.ToUpper(coin))
	}

	if status != "" {
		i, err := strconv.Atoi(status)
		if err != nil {
			return nil, fmt.Errorf("%w: %s. Error: %v", errInvalidStatusCode, status, err)
		}

		if _, ok := withdrawStatusNames[i]; !ok {
			return nil, fmt.Errorf("%w: %s", errInvalidStatusCode, status)
		}

		params.Set("status", status)
	}

	if !startTime.IsZero() {
		params.Set("startTime", strconv.FormatInt(startTime.UTC().UnixMilli(), 10))
	}

	if !endTime.IsZero() {
		params.Set("endTime", strconv.FormatInt(endTime.UTC().UnixMilli(), 10))
	}

	if offset != 0 {
		params.Set("offset", strconv.Itoa(offset))
	}

	if limit != 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var withdrawStatus []WithdrawStatusResponse
	if err := b.SendAuthHTTPRequest(ctx,
		http.MethodGet,
		withdrawHistory,
		params,
		request.Auth,
		&withdrawStatus); err != nil {
		return nil, err
	}

	return withdrawStatus, nil
}

// SendHTTPRequest sends an unauthenticated request
func (b *Binance) SendHTTPRequest(ctx context.Context, path string, f request.EndpointLimit, result interface{}) error {
	endpointPath, err := b.GetAPIURL(exchange.RestSpot)
	if err != nil {
		return err
	}
	item := &request.Item{
		Method:        http.MethodGet,
		Path:          endpointPath + path,
		Result:        result,
		Verbose:       b.Verbose,
		HTTPDebugging: b.HTTPDebugging,
	}

	return b.checkError(b.Requester.SendPayload(ctx, f, func() (*request.Item, error) {
		return item, nil
	}))
}

// SendAuthHTTPRequest sends an authenticated HTTP request. A rejected
// timestamp resynchronises the server time offset and, unless the context
// forbids retries, the request is sent once more.
func (b *Binance) SendAuthHTTPRequest(ctx context.Context, method, path string, params url.Values, f request.EndpointLimit, result interface{}) error {
	err := b.sendAuthHTTPRequest(ctx, method, path, params, f, result)
	if !errors.Is(err, exchange.ErrTimestampDesync) {
		return err
	}
	if syncErr := b.SyncServerTime(ctx); syncErr != nil {
		log.Errorf(log.ExchangeSys, "%s unable to resynchronise server time: %v", b.Name, syncErr)
		return err
	}
	if request.IsRetryNotAllowed(ctx) {
		return err
	}
	return b.sendAuthHTTPRequest(ctx, method, path, params, f, result)
}

func (b *Binance) sendAuthHTTPRequest(ctx context.Context, method, path string, params url.Values, f request.EndpointLimit, result interface{}) error {
	creds, err := b.GetCredentials(ctx)
	if err != nil {
		return err
	}

	endpointPath, err := b.GetAPIURL(exchange.RestSpot)
	if err != nil {
		return err
	}

	if params == nil {
		params = url.Values{}
	}

	if params.Get("recvWindow") == "" {
		params.Set("recvWindow", strconv.FormatInt(exchange.DefaultRecvWindow.Milliseconds(), 10))
	}

	interim := json.RawMessage{}
	err = b.Requester.SendPayload(ctx, f, func() (*request.Item, error) {
		params.Set("timestamp", strconv.FormatInt(b.ServerTime().UnixMilli(), 10))
		signature := crypto.SignHex(params.Encode(), creds.Secret)
		headers := make(map[string]string)
		headers[apiKeyHeader] = creds.Key
		fullPath := common.EncodeURLValues(endpointPath+path, params)
		fullPath += "&signature=" + signature
		return &request.Item{
			Method:        method,
			Path:          fullPath,
			Headers:       headers,
			Result:        &interim,
			Verbose:       b.Verbose,
			HTTPDebugging: b.HTTPDebugging,
		}, nil
	})
	if err != nil {
		return b.checkError(err)
	}
	if err := parseError(interim); err != nil {
		return fmt.Errorf("%s %w", b.Name, err)
	}
	if result == nil {
		return nil
	}
	return json.Unmarshal(interim, result)
}

// checkError decodes the exchange error payload carried by an unsuccessful
// HTTP response
func (b *Binance) checkError(err error) error {
	var httpErr *request.HTTPError
	if !errors.As(err, &httpErr) {
		return err
	}
	if apiErr := parseError(httpErr.Body); apiErr != nil {
		return fmt.Errorf("%s %w", b.Name, apiErr)
	}
	return err
}

// parseError returns an error for a {"code":...,"msg":...} payload
func parseError(body []byte) error {
	code, err := jsonparser.GetInt(body, "code")
	if err != nil || code == 0 || code == http.StatusOK {
		return nil
	}
	msg, _ := jsonparser.GetString(body, "msg")
	if code == timestampOutsideRecvWindow ||
		code == invalidSignature ||
		exchange.IsTimestampMessage(msg) {
		return fmt.Errorf("%w: code %d %s", exchange.ErrTimestampDesync, code, msg)
	}
	return fmt.Errorf("%w: code %d %s", errAPIRejected, code, msg)
}
