package courtgate

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/courtmatch/courtgate/internal/audit"
	"github.com/courtmatch/courtgate/internal/rate"
	"github.com/courtmatch/courtgate/password"
	"github.com/courtmatch/courtgate/rbac"
	"github.com/courtmatch/courtgate/session"
	"github.com/courtmatch/courtgate/tier"
	"github.com/courtmatch/courtgate/token"
)

// Builder assembles a [Gateway]. Zero value is unusable; start from [New],
// chain the With* setters, then call [Builder.Build] exactly once.
type Builder struct {
	config      Config
	redis       redis.UniversalClient
	users       UserProvider
	tournaments rbac.TournamentProvider
	clubs       rbac.ClubProvider
	usage       tier.UsageProvider
	auditSink   AuditSink
	logger      *zap.Logger
	built       bool
}

// New returns a Builder seeded with [DefaultConfig]. The token secret
// must still be supplied before Build.
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

// WithConfig replaces the entire configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing sessions and rate counters.
func (b *Builder) WithRedis(rdb redis.UniversalClient) *Builder {
	b.redis = rdb
	return b
}

// WithUserProvider sets the identity store.
func (b *Builder) WithUserProvider(p UserProvider) *Builder {
	b.users = p
	return b
}

// WithTournamentProvider sets the tournament snapshot source used by the
// resource predicates.
func (b *Builder) WithTournamentProvider(p rbac.TournamentProvider) *Builder {
	b.tournaments = p
	return b
}

// WithClubProvider sets the club membership source used by the resource
// predicates.
func (b *Builder) WithClubProvider(p rbac.ClubProvider) *Builder {
	b.clubs = p
	return b
}

// WithUsageProvider sets the usage counter source for tier gating.
func (b *Builder) WithUsageProvider(p tier.UsageProvider) *Builder {
	b.usage = p
	return b
}

// WithAuditSink routes audit events to a caller-supplied sink instead of
// the default zap sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the logger backing the default audit sink. Ignored when
// WithAuditSink is also set.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// Build validates the wiring and constructs the Gateway.
func (b *Builder) Build() (*Gateway, error) {
	if b.built {
		return nil, errors.New("courtgate: builder already consumed")
	}
	if b.redis == nil {
		return nil, errors.New("courtgate: redis client is required")
	}
	if b.users == nil {
		return nil, errors.New("courtgate: user provider is required")
	}
	if b.tournaments == nil {
		return nil, errors.New("courtgate: tournament provider is required")
	}
	if b.clubs == nil {
		return nil, errors.New("courtgate: club provider is required")
	}
	if b.usage == nil {
		return nil, errors.New("courtgate: usage provider is required")
	}
	if err := b.config.Validate(); err != nil {
		return nil, err
	}

	tokens, err := token.NewService(token.Config{
		Secret:     b.config.Token.Secret,
		Issuer:     b.config.Token.Issuer,
		AccessTTL:  b.config.Token.AccessTTL,
		RefreshTTL: b.config.Token.RefreshTTL,
		Leeway:     b.config.Token.Leeway,
	})
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(password.Config{
		Memory:      b.config.Password.Memory,
		Time:        b.config.Password.Time,
		Parallelism: b.config.Password.Parallelism,
		SaltLength:  b.config.Password.SaltLength,
		KeyLength:   b.config.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	policies := make(map[rate.Action]rate.Policy, len(b.config.RateLimit.Policies))
	for action, p := range b.config.RateLimit.Policies {
		policies[rate.Action(action)] = rate.Policy{MaxAttempts: p.MaxAttempts, Window: p.Window}
	}

	sessions := session.NewStore(b.redis, b.config.Session.RedisPrefix,
		b.config.Session.Lifetime, b.config.Session.RefreshThreshold)

	authorizer, err := rbac.NewAuthorizer(b.tournaments, b.clubs)
	if err != nil {
		return nil, err
	}

	gate, err := tier.NewGate(b.usage, userTierResolver{b.users})
	if err != nil {
		return nil, err
	}

	var sink audit.Sink
	switch {
	case b.auditSink != nil:
		sink = sinkAdapter{b.auditSink}
	case b.logger != nil:
		sink = audit.NewZapSink(b.logger)
	default:
		sink = audit.NoOpSink{}
	}

	gw := &Gateway{
		config:     b.config,
		tokens:     tokens,
		sessions:   sessions,
		limiter:    rate.New(b.redis, policies),
		authorizer: authorizer,
		gate:       gate,
		passwords:  hasher,
		users:      b.users,
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    b.config.Audit.Enabled,
			BufferSize: b.config.Audit.BufferSize,
			DropIfFull: b.config.Audit.DropIfFull,
		}, sink),
		metrics: metrics{enabled: b.config.Metrics.Enabled},
	}

	b.built = true
	return gw, nil
}

// sinkAdapter bridges the exported AuditSink contract onto the internal
// dispatcher's sink.
type sinkAdapter struct {
	sink AuditSink
}

func (a sinkAdapter) Emit(ctx context.Context, ev audit.Event) {
	a.sink.Emit(ctx, AuditEvent{
		Timestamp: ev.Timestamp,
		EventType: ev.EventType,
		UserID:    ev.UserID,
		SessionID: ev.SessionID,
		IP:        ev.IP,
		Success:   ev.Success,
		Error:     ev.Error,
		Metadata:  ev.Metadata,
	})
}

// userTierResolver derives the live tier from the identity store. Unknown
// tier strings fail closed.
type userTierResolver struct {
	users UserProvider
}

func (r userTierResolver) TierFor(ctx context.Context, userID string) (tier.Tier, error) {
	user, err := r.users.GetUserByID(ctx, userID)
	if err != nil {
		return "", err
	}
	t, ok := tier.ParseTier(user.Tier)
	if !ok {
		return "", fmt.Errorf("unknown tier %q for user %s", user.Tier, userID)
	}
	return t, nil
}
