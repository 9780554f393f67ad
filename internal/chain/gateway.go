// Package chain talks to a single Ethereum JSON-RPC node: pending nonce,
// raw transaction broadcast and balance lookups.
package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/mmynk/medpay/internal/wallet"
)

const (
	// TransferGasLimit is the cost of a plain value transfer.
	TransferGasLimit uint64 = 21000

	DefaultTimeout = 5 * time.Second
)

// DefaultGasPrice is 20 gwei.
var DefaultGasPrice = big.NewInt(20_000_000_000)

// ErrUnavailable means the node could not be reached or did not answer in time.
// For a broadcast the transaction's fate is unknown.
var ErrUnavailable = errors.New("chain node unavailable")

// ErrNotSent means the call never left the gateway, e.g. the rate limiter
// could not grant a slot before the deadline. A broadcast failing with it did
// not reach the node.
var ErrNotSent = errors.New("request not sent to chain node")

// RejectedError is returned when the node answered a broadcast with an error:
// insufficient funds, bad nonce, malformed transaction.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return "transaction rejected: " + e.Reason
}

// Client is the subset of *ethclient.Client the gateway uses.
type Client interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

var _ Client = (*ethclient.Client)(nil)

// Config holds the fixed transfer parameters and call limits.
type Config struct {
	GasPrice *big.Int
	GasLimit uint64
	// Timeout bounds every node call.
	Timeout time.Duration
	// RateLimit caps outbound calls per second. Zero disables the limiter.
	RateLimit float64
}

// Gateway wraps a long-lived node client. Safe for concurrent use.
type Gateway struct {
	client  Client
	cfg     Config
	limiter *rate.Limiter
	metrics *gatewayMetrics
}

// NewGateway creates a Gateway around an existing client handle.
func NewGateway(client Client, cfg Config) *Gateway {
	if cfg.GasPrice == nil {
		cfg.GasPrice = DefaultGasPrice
	}
	if cfg.GasLimit == 0 {
		cfg.GasLimit = TransferGasLimit
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	g := &Gateway{client: client, cfg: cfg, metrics: defaultGatewayMetrics()}
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return g
}

// Dial connects to rpcURL. When chainID is nil it is fetched from the node
// within timeout. The caller owns the returned client and must Close it.
func Dial(ctx context.Context, rpcURL string, chainID *big.Int, timeout time.Duration) (*ethclient.Client, *big.Int, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to chain node: %w", err)
	}
	if chainID == nil || chainID.Sign() == 0 {
		chainID, err = client.ChainID(ctx)
		if err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to get chain ID: %w", err)
		}
	}
	slog.Info("Chain node connected", "rpc", rpcURL, "chain_id", chainID.String())
	return client, chainID, nil
}

// GasPrice returns the fixed gas price in wei.
func (g *Gateway) GasPrice() *big.Int {
	return new(big.Int).Set(g.cfg.GasPrice)
}

// GasLimit returns the fixed gas limit.
func (g *Gateway) GasLimit() uint64 {
	return g.cfg.GasLimit
}

// NextNonce returns the account's pending transaction count.
func (g *Gateway) NextNonce(ctx context.Context, address common.Address) (uint64, error) {
	var nonce uint64
	err := g.call(ctx, "nonce", func(ctx context.Context) error {
		var err error
		nonce, err = g.client.PendingNonceAt(ctx, address)
		return err
	})
	if err != nil {
		return 0, unavailable("get nonce", err)
	}
	return nonce, nil
}

// Broadcast submits a raw signed transaction and returns its hash.
// Node errors become *RejectedError; transport failures and timeouts
// ErrUnavailable. ErrNotSent means nothing was submitted.
func (g *Gateway) Broadcast(ctx context.Context, raw []byte) (string, error) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return "", &RejectedError{Reason: "malformed transaction: " + err.Error()}
	}

	err := g.call(ctx, "broadcast", func(ctx context.Context) error {
		return g.client.SendTransaction(ctx, tx)
	})
	if err != nil {
		return "", classifyBroadcast(err)
	}
	return tx.Hash().Hex(), nil
}

// Balance returns the account balance in ether at the latest block.
func (g *Gateway) Balance(ctx context.Context, address common.Address) (decimal.Decimal, error) {
	var wei *big.Int
	err := g.call(ctx, "balance", func(ctx context.Context) error {
		var err error
		wei, err = g.client.BalanceAt(ctx, address, nil)
		return err
	})
	if err != nil {
		return decimal.Zero, unavailable("get balance", err)
	}
	return wallet.WeiToEther(wei), nil
}

// call applies the rate limit and timeout around fn and records its duration.
func (g *Gateway) call(ctx context.Context, method string, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			g.metrics.rpcDuration.WithLabelValues(method, "not_sent").Observe(0)
			return fmt.Errorf("%w: %v", ErrNotSent, err)
		}
	}

	start := time.Now()
	err := fn(ctx)
	result := "ok"
	if err != nil {
		result = "error"
	}
	g.metrics.rpcDuration.WithLabelValues(method, result).Observe(time.Since(start).Seconds())
	return err
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}

// classifyBroadcast separates a node's explicit refusal from a failure to get an answer.
func classifyBroadcast(err error) error {
	if errors.Is(err, ErrNotSent) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return unavailable("broadcast", err)
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return &RejectedError{Reason: rpcErr.Error()}
	}
	return unavailable("broadcast", err)
}
