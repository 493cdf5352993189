package okx

import (
	"bytes"
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
	"github.com/thrasher-corp/gctwithdraw/common/convert"
	"github.com/thrasher-corp/gctwithdraw/common/crypto"
	exchange "github.com/thrasher-corp/gctwithdraw/exchanges"
	"github.com/thrasher-corp/gctwithdraw/exchanges/account"
	"github.com/thrasher-corp/gctwithdraw/exchanges/request"
	"github.com/thrasher-corp/gctwithdraw/log"
)

// Okx is the overarching type across the OKX package
type Okx struct {
	exchange.Base
}

const (
	apiURL     = "https://www.okx.com"
	okxAPIPath = "/api/v5/"

	// Public endpoints
	systemTime   = "public/time"
	marketTicker = "market/ticker"

	// Funding endpoints
	assetCurrencies   = "asset/currencies"
	assetBalance      = "asset/balances"
	assetWithdrawal   = "asset/withdrawal"
	withdrawalHistory = "asset/withdrawal-history"

	// onChainWithdrawal is the withdrawal destination for a digital
	// currency address
	onChainWithdrawal = "4"

	timestampLayout = "2006-01-02T15:04:05.000Z"

	// Error codes for a rejected timestamp or signature
	timestampRequestExpired = 50102
	invalidTimestamp        = 50112
	invalidSign             = 50113
)

var (
	errAPIRejected          = errors.New("request rejected")
	errMissingCurrency      = errors.New("currency is required")
	errInvalidWithdrawal    = errors.New("currency, chain, address and amount are required")
	errWithdrawIDEmpty      = errors.New("withdrawal ID is empty")
	errInstrumentIDEmpty    = errors.New("instrument ID cannot be empty")
	errNoValidResponseFound = errors.New("no valid response found")
)

// GetSystemTime retrieves the current system time of the API server
func (ok *Okx) GetSystemTime(ctx context.Context) (time.Time, error) {
	var resp []ServerTime
	if err := ok.SendHTTPRequest(ctx, request.UnAuth, http.MethodGet, systemTime, nil, &resp, false); err != nil {
		return time.Time{}, err
	}
	if len(resp) == 0 {
		return time.Time{}, errNoValidResponseFound
	}
	return convert.TimeFromUnixMilliString(resp[0].Timestamp)
}

// GetTicker retrieves the latest price snapshot of an instrument
func (ok *Okx) GetTicker(ctx context.Context, instrumentID string) (*TickerResponse, error) {
	if instrumentID == "" {
		return nil, errInstrumentIDEmpty
	}
	params := url.Values{}
	params.Set("instId", strings.ToUpper(instrumentID))
	var resp []TickerResponse
	if err := ok.SendHTTPRequest(ctx, request.UnAuth, http.MethodGet, common.EncodeURLValues(marketTicker, params), nil, &resp, false); err != nil {
		return nil, err
	}
	if len(resp) == 0 {
		return nil, errNoValidResponseFound
	}
	return &resp[0], nil
}

// GetCurrencies returns the chains of each currency, an empty currency
// returns all currencies
func (ok *Okx) GetCurrencies(ctx context.Context, ccy string) ([]CurrencyResponse, error) {
	params := url.Values{}
	if ccy != "" {
		params.Set("ccy", strings.ToUpper(ccy))
	}
	var resp []CurrencyResponse
	return resp, ok.SendHTTPRequest(ctx, request.Auth, http.MethodGet, common.EncodeURLValues(assetCurrencies, params), nil, &resp, true)
}

// GetFundingBalances retrieves the funding account balances of a currency
func (ok *Okx) GetFundingBalances(ctx context.Context, ccy string) ([]AssetBalance, error) {
	if ccy == "" {
		return nil, errMissingCurrency
	}
	params := url.Values{}
	params.Set("ccy", strings.ToUpper(ccy))
	var resp []AssetBalance
	return resp, ok.SendHTTPRequest(ctx, request.Auth, http.MethodGet, common.EncodeURLValues(assetBalance, params), nil, &resp, true)
}

// Withdrawal submits an on chain withdrawal. The request is never retried.
func (ok *Okx) Withdrawal(ctx context.Context, input *WithdrawalInput) (*WithdrawalResponse, error) {
	if input == nil || input.Currency == "" || input.ChainName == "" || input.ToAddress == "" || input.Amount == "" {
		return nil, errInvalidWithdrawal
	}
	if input.WithdrawalDestination == "" {
		input.WithdrawalDestination = onChainWithdrawal
	}
	var resp []WithdrawalResponse
	if err := ok.SendHTTPRequest(request.WithRetryNotAllowed(ctx), request.Auth, http.MethodPost, assetWithdrawal, input, &resp, true); err != nil {
		return nil, err
	}
	if len(resp) == 0 || resp[0].WithdrawalID == "" {
		return nil, errWithdrawIDEmpty
	}
	return &resp[0], nil
}

// GetWithdrawals retrieves the recent withdrawal records, an empty currency
// returns all currencies
func (ok *Okx) GetWithdrawals(ctx context.Context, ccy string, limit int) ([]WithdrawalHistoryResponse, error) {
	params := url.Values{}
	if ccy != "" {
		params.Set("ccy", strings.ToUpper(ccy))
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var resp []WithdrawalHistoryResponse
	return resp, ok.SendHTTPRequest(ctx, request.Auth, http.MethodGet, common.EncodeURLValues(withdrawalHistory, params), nil, &resp, true)
}

// SendHTTPRequest sends a request to the v5 API and decodes the data field
// of the response envelope into result. A rejected timestamp on an
// authenticated request resynchronises the server time offset and, unless
// the context forbids retries, the request is sent once more.
func (ok *Okx) SendHTTPRequest(ctx context.Context, f request.EndpointLimit, httpMethod, requestPath string, data, result interface{}, authenticated bool) error {
	err := ok.sendHTTPRequest(ctx, f, httpMethod, requestPath, data, result, authenticated)
	if !authenticated || !errors.Is(err, exchange.ErrTimestampDesync) {
		return err
	}
	if syncErr := ok.SyncServerTime(ctx); syncErr != nil {
		log.Errorf(log.ExchangeSys, "%s unable to resynchronise server time: %v", ok.Name, syncErr)
		return err
	}
	if request.IsRetryNotAllowed(ctx) {
		return err
	}
	return ok.sendHTTPRequest(ctx, f, httpMethod, requestPath, data, result, authenticated)
}

func (ok *Okx) sendHTTPRequest(ctx context.Context, f request.EndpointLimit, httpMethod, requestPath string, data, result interface{}, authenticated bool) error {
	endpoint, err := ok.GetAPIURL(exchange.RestSpot)
	if err != nil {
		return err
	}
	var creds *account.Credentials
	if authenticated {
		creds, err = ok.GetCredentials(ctx)
		if err != nil {
			return err
		}
	}
	var payload []byte
	if data != nil {
		payload, err = json.Marshal(data)
		if err != nil {
			return err
		}
	}

	interim := json.RawMessage{}
	err = ok.Requester.SendPayload(ctx, f, func() (*request.Item, error) {
		headers := make(map[string]string)
		headers["Content-Type"] = "application/json"
		if ok.Simulated {
			headers["x-simulated-trading"] = "1"
		}
		if authenticated {
			utcTime := ok.ServerTime().UTC().Format(timestampLayout)
			headers["OK-ACCESS-KEY"] = creds.Key
			headers["OK-ACCESS-SIGN"] = crypto.SignBase64(utcTime+httpMethod+okxAPIPath+requestPath+string(payload), creds.Secret)
			headers["OK-ACCESS-TIMESTAMP"] = utcTime
			headers["OK-ACCESS-PASSPHRASE"] = creds.ClientID
		}
		return &request.Item{
			Method:        httpMethod,
			Path:          endpoint + okxAPIPath + requestPath,
			Headers:       headers,
			Body:          bytes.NewReader(payload),
			Result:        &interim,
			Verbose:       ok.Verbose,
			HTTPDebugging: ok.HTTPDebugging,
		}, nil
	})
	if err != nil {
		return ok.checkError(err)
	}
	resp, err := parseResponse(interim)
	if err != nil {
		return fmt.Errorf("%s %w", ok.Name, err)
	}
	if result == nil || len(resp) == 0 {
		return nil
	}
	return json.Unmarshal(resp, result)
}

// checkError decodes the response envelope carried by an unsuccessful HTTP
// response
func (ok *Okx) checkError(err error) error {
	var httpErr *request.HTTPError
	if !errors.As(err, &httpErr) {
		return err
	}
	if _, _, _, codeErr := jsonparser.Get(httpErr.Body, "code"); codeErr != nil {
		return err
	}
	if _, apiErr := parseResponse(httpErr.Body); apiErr != nil {
		return fmt.Errorf("%s %w", ok.Name, apiErr)
	}
	return err
}

// parseResponse checks the code of a {"code":...,"msg":...,"data":[...]}
// envelope and returns its data field
func parseResponse(body []byte) ([]byte, error) {
	rawCode, _, _, err := jsonparser.Get(body, "code")
	if err != nil {
		return nil, fmt.Errorf("%w: missing response code", errAPIRejected)
	}
	code, err := strconv.ParseInt(string(rawCode), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid response code %q", errAPIRejected, rawCode)
	}
	msg, _ := jsonparser.GetString(body, "msg")
	if code != 0 {
		// Batch style endpoints return the cause per item
		if sMsg, err := jsonparser.GetString(body, "data", "[0]", "sMsg"); err == nil && sMsg != "" {
			msg = strings.TrimSpace(msg + " " + sMsg)
		}
		switch {
		case code == timestampRequestExpired,
			code == invalidTimestamp,
			code == invalidSign,
			exchange.IsTimestampMessage(msg):
			return nil, fmt.Errorf("%w: code %d %s", exchange.ErrTimestampDesync, code, msg)
		}
		return nil, fmt.Errorf("%w: code %d %s", errAPIRejected, code, msg)
	}
	data, dataType, _, err := jsonparser.Get(body, "data")
	if errors.Is(err, jsonparser.KeyPathNotFoundError) || dataType == jsonparser.Null {
		return nil, nil
	}
	return data, err
}
