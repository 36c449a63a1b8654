package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/procurement-backend/api/responses"
	"github.com/angelmondragon/procurement-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/procurement-backend/pkg/errors"
	"github.com/angelmondragon/procurement-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/procurement-backend/pkg/redis"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	// ReplayedHeader marks a response served from the idempotency store.
	ReplayedHeader = "Idempotent-Replayed"

	maxIdempotencyKeyLen = 255
	replayLease          = 2 * time.Minute
)

// ReplayPolicy configures idempotent replay for one route.
type ReplayPolicy struct {
	TTL time.Duration
	// Required rejects requests without an Idempotency-Key.
	Required bool
}

var (
	ReplayStandard = ReplayPolicy{TTL: 24 * time.Hour}
	// ReplayCritical keeps money-moving responses for a week.
	ReplayCritical = ReplayPolicy{TTL: 7 * 24 * time.Hour}
	// ReplayRequired is for writes that are not naturally idempotent.
	ReplayRequired = ReplayPolicy{TTL: 24 * time.Hour, Required: true}
)

type replayState string

const (
	replayPending replayState = "pending"
	replayDone    replayState = "done"
)

type replayRecord struct {
	State       replayState `json:"state"`
	Fingerprint string      `json:"fingerprint"`
	Status      int         `json:"status,omitempty"`
	ContentType string      `json:"content_type,omitempty"`
	Body        []byte      `json:"body,omitempty"`
}

// Replayer stores the first response for each (actor, route, key) and
// serves it again for retries carrying the same key and body. The key is
// claimed before the handler runs, so concurrent duplicates are refused
// instead of executing twice.
type Replayer struct {
	store pkgredis.IdempotencyStore
	logg  *logger.Logger
}

// NewReplayer returns a Replayer; a nil store disables replay.
func NewReplayer(store pkgredis.IdempotencyStore, logg *logger.Logger) *Replayer {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Replayer{store: store, logg: logg}
}

func (rp *Replayer) Idempotent(policy ReplayPolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
			switch {
			case clientKey == "" && policy.Required:
				responses.WriteError(r.Context(), rp.logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			case len(clientKey) > maxIdempotencyKeyLen:
				responses.WriteError(r.Context(), rp.logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key too long"))
				return
			case clientKey == "" || rp.store == nil:
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(r.Context(), rp.logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			rp.serve(w, r, next, policy, rp.store.IdempotencyKey(replayScope(r), clientKey), fingerprint(body))
		})
	}
}

func (rp *Replayer) serve(w http.ResponseWriter, r *http.Request, next http.Handler, policy ReplayPolicy, key, print string) {
	ctx := r.Context()
	pending, _ := json.Marshal(replayRecord{State: replayPending, Fingerprint: print})
	claimed, err := rp.store.SetNX(ctx, key, string(pending), min(replayLease, policy.TTL))
	if err != nil {
		responses.WriteError(ctx, rp.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
		return
	}
	if !claimed {
		rp.replay(w, r, key, print)
		return
	}

	storeCtx := context.WithoutCancel(ctx)
	settled := false
	defer func() {
		// a panicking or failed handler frees the key for a retry
		if !settled {
			rp.forget(storeCtx, key)
		}
	}()

	capture := &responseCapture{ResponseWriter: w}
	next.ServeHTTP(capture, r)

	status := capture.statusCode()
	if status >= http.StatusInternalServerError {
		return
	}
	done, err := json.Marshal(replayRecord{
		State:       replayDone,
		Fingerprint: print,
		Status:      status,
		ContentType: capture.Header().Get("Content-Type"),
		Body:        capture.body.Bytes(),
	})
	if err == nil {
		err = rp.store.Set(storeCtx, key, string(done), policy.TTL)
	}
	if err != nil {
		rp.logg.Error(ctx, "persist idempotent response", err)
		return
	}
	settled = true
}

func (rp *Replayer) replay(w http.ResponseWriter, r *http.Request, key, print string) {
	ctx := r.Context()
	stored, err := rp.store.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		// the earlier attempt released its claim between our SetNX and Get
		writeInProgress(ctx, rp.logg, w)
		return
	}
	if err != nil {
		responses.WriteError(ctx, rp.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotent response"))
		return
	}

	var record replayRecord
	if err := json.Unmarshal([]byte(stored), &record); err != nil {
		responses.WriteError(ctx, rp.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotent response"))
		return
	}
	if record.Fingerprint != print {
		responses.WriteError(ctx, rp.logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
		return
	}
	if record.State != replayDone {
		writeInProgress(ctx, rp.logg, w)
		return
	}

	if record.ContentType != "" {
		w.Header().Set("Content-Type", record.ContentType)
	}
	w.Header().Set(ReplayedHeader, "true")
	w.WriteHeader(record.Status)
	_, _ = w.Write(record.Body)
}

func (rp *Replayer) forget(ctx context.Context, key string) {
	if err := rp.store.Del(ctx, key); err != nil {
		rp.logg.Error(ctx, "release idempotency key", err)
	}
}

func writeInProgress(ctx context.Context, logg *logger.Logger, w http.ResponseWriter) {
	w.Header().Set("Retry-After", "1")
	responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "a request with this Idempotency-Key is still in progress"))
}

// replayScope keeps keys from colliding across actors and routes.
func replayScope(r *http.Request) string {
	actor := auth.ActorFrom(r.Context())
	return strings.Join([]string{
		actor.UserID.String(),
		"c" + strconv.FormatInt(actor.CompanyID, 10),
		"s" + strconv.FormatInt(actor.SupplierID, 10),
		r.Method,
		r.URL.Path,
	}, "|")
}

func fingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// responseCapture tees the response so it can be stored after the handler
// returns.
type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *responseCapture) statusCode() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}
