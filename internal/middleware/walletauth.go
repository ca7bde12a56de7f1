// Package middleware provides HTTP middleware for the savings gateway
package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gorilla/mux"
	"github.com/tidwall/gjson"

	"github.com/nestfund/savings_layer/internal/errors"
	"github.com/nestfund/savings_layer/internal/httputil"
	"github.com/nestfund/savings_layer/internal/logging"
	"github.com/nestfund/savings_layer/internal/metrics"
)

// Wallet authentication headers.
const (
	HeaderWalletAddress = "X-Wallet-Address"
	HeaderSignature     = "X-Signature"
	HeaderMessage       = "X-Message"
	HeaderTimestamp     = "X-Timestamp"
)

// DefaultSignatureWindow bounds the clock skew accepted on X-Timestamp.
const DefaultSignatureWindow = 5 * time.Minute

type walletKey struct{}

// WalletAuthConfig configures wallet-signature authentication.
type WalletAuthConfig struct {
	// Simplified accepts a well-formed wallet address and numeric timestamp
	// without a signature. Non-adversarial environments only.
	Simplified bool
	Window     time.Duration
	SkipPaths  []string
	Logger     *logging.Logger
	Metrics    *metrics.Metrics
	Now        func() time.Time
}

// WalletAuth authenticates callers by a detached ed25519 signature from the
// wallet they claim to be.
type WalletAuth struct {
	simplified bool
	window     time.Duration
	skipPaths  map[string]bool
	logger     *logging.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

// NewWalletAuth creates the middleware.
func NewWalletAuth(cfg WalletAuthConfig) *WalletAuth {
	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultSignatureWindow
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewDiscard()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &WalletAuth{
		simplified: cfg.Simplified,
		window:     cfg.Window,
		skipPaths:  skip,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		now:        cfg.Now,
	}
}

// Simplified reports whether signature checks are bypassed.
func (m *WalletAuth) Simplified() bool {
	return m.simplified
}

// authFailure carries the metric reason alongside the client-facing error.
type authFailure struct {
	reason string
	err    *errors.ServiceError
}

func fail(reason string, err *errors.ServiceError) *authFailure {
	return &authFailure{reason: reason, err: err}
}

// Handler returns the middleware handler. Wrapped in a gorilla router via
// Use, path variables are already resolved when it runs.
func (m *WalletAuth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skipPaths[r.URL.Path] || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		wallet, failure := m.authenticate(r)
		if failure == nil {
			failure = m.checkOwnership(r, wallet)
		}
		if failure != nil {
			m.respondError(w, r, failure)
			return
		}

		ctx := ContextWithWallet(r.Context(), wallet)

		m.logger.WithContext(ctx).WithField("simplified", m.simplified).Debug("Authentication successful")

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authenticate runs the header checks in order: presence, timestamp,
// address, signature.
func (m *WalletAuth) authenticate(r *http.Request) (solana.PublicKey, *authFailure) {
	address := strings.TrimSpace(r.Header.Get(HeaderWalletAddress))
	timestamp := strings.TrimSpace(r.Header.Get(HeaderTimestamp))

	if m.simplified {
		if address == "" || timestamp == "" {
			return solana.PublicKey{}, fail("missing_headers", errors.Unauthorized("missing authentication headers"))
		}
		if _, err := strconv.ParseInt(timestamp, 10, 64); err != nil {
			return solana.PublicKey{}, fail("invalid_timestamp", errors.Unauthorized("invalid timestamp"))
		}
		wallet, err := solana.PublicKeyFromBase58(address)
		if err != nil {
			return solana.PublicKey{}, fail("invalid_address", errors.Unauthorized("invalid wallet address"))
		}
		return wallet, nil
	}

	signature := strings.TrimSpace(r.Header.Get(HeaderSignature))
	message := r.Header.Get(HeaderMessage)
	if address == "" || timestamp == "" || signature == "" || message == "" {
		return solana.PublicKey{}, fail("missing_headers", errors.Unauthorized("missing authentication headers"))
	}

	ms, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return solana.PublicKey{}, fail("invalid_timestamp", errors.Unauthorized("invalid timestamp"))
	}
	skew := m.now().Sub(time.UnixMilli(ms))
	if skew < 0 {
		skew = -skew
	}
	if skew > m.window {
		return solana.PublicKey{}, fail("expired_timestamp", errors.Unauthorized("timestamp outside accepted window").
			WithDetails("window_seconds", int64(m.window/time.Second)))
	}

	wallet, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return solana.PublicKey{}, fail("invalid_address", errors.Unauthorized("invalid wallet address"))
	}

	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return solana.PublicKey{}, fail("invalid_signature", errors.InvalidSignature(err))
	}
	if !sig.Verify(wallet, []byte(message)) {
		return solana.PublicKey{}, fail("invalid_signature", errors.InvalidSignature(nil))
	}
	return wallet, nil
}

// checkOwnership rejects requests whose path or body names a wallet other
// than the authenticated one.
func (m *WalletAuth) checkOwnership(r *http.Request, wallet solana.PublicKey) *authFailure {
	claimed := wallet.String()

	if named, ok := mux.Vars(r)["address"]; ok && named != claimed {
		return fail("wallet_mismatch", errors.Forbidden("wallet does not match authenticated caller").
			WithDetails("source", "path"))
	}

	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	body, err := httputil.PeekBody(r)
	if err != nil {
		return fail("unreadable_body", errors.Validation("request body too large"))
	}
	named := gjson.GetBytes(body, "walletAddress")
	if named.Exists() && named.Type == gjson.String && named.String() != claimed {
		return fail("wallet_mismatch", errors.Forbidden("wallet does not match authenticated caller").
			WithDetails("source", "body"))
	}
	return nil
}

func (m *WalletAuth) respondError(w http.ResponseWriter, r *http.Request, failure *authFailure) {
	m.metrics.RecordAuthFailure(failure.reason)

	fields := map[string]interface{}{
		"reason": failure.reason,
		"path":   r.URL.Path,
		"method": r.Method,
		"status": failure.err.HTTPStatus,
	}
	if addr := r.Header.Get(HeaderWalletAddress); addr != "" {
		fields["claimed_wallet"] = addr
	}
	if failure.err.HTTPStatus == http.StatusForbidden {
		m.logger.LogSecurityEvent(r.Context(), "cross_account_access", fields)
	} else {
		m.logger.WithContext(r.Context()).WithFields(fields).Warn("Authentication failed")
	}

	httputil.WriteServiceError(w, failure.err)
}

// WalletFromContext returns the authenticated wallet.
func WalletFromContext(ctx context.Context) (solana.PublicKey, bool) {
	wallet, ok := ctx.Value(walletKey{}).(solana.PublicKey)
	return wallet, ok
}

// ContextWithWallet attaches wallet as the authenticated caller. Handlers
// served without WalletAuth (tests, internal tooling) use it directly.
func ContextWithWallet(ctx context.Context, wallet solana.PublicKey) context.Context {
	ctx = context.WithValue(ctx, walletKey{}, wallet)
	return logging.WithWallet(ctx, wallet.String())
}
