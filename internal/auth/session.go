package auth

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-client/internal/domain"
	"github.com/spec-kit/helpdesk-client/internal/normalize"
	"github.com/spec-kit/helpdesk-client/internal/persistence"
	"github.com/spec-kit/helpdesk-client/pkg/util/errorutil"
)

// StoredSession is the raw persisted session: a bearer token and the
// serialized current-user record as the backend returned it at sign-in.
type StoredSession struct {
	Token string
	User  []byte
}

// Source reads a persisted session. Sources never write.
type Source interface {
	Read(ctx context.Context) (StoredSession, error)
}

// FileSource reads a JSON document of the form {"token": ..., "user": {...}}.
type FileSource struct {
	Path string
}

// NewFileSource builds a file-backed session source.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (s *FileSource) Read(_ context.Context) (StoredSession, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return StoredSession{}, errorutil.NewUnauthorized("no saved session, please sign in")
	}
	if err != nil {
		return StoredSession{}, errorutil.NewInternalError(err)
	}
	if !gjson.ValidBytes(data) {
		return StoredSession{}, errorutil.NewUnauthorized("saved session is unreadable, please sign in again")
	}
	doc := gjson.ParseBytes(data)
	token := doc.Get("token").String()
	if token == "" {
		token = doc.Get("access_token").String()
	}
	var user []byte
	if u := doc.Get("user"); u.Exists() {
		user = []byte(u.Raw)
	}
	return StoredSession{Token: token, User: user}, nil
}

// RedisSource reads "<prefix>:token" and "<prefix>:user".
type RedisSource struct {
	redis  *persistence.Redis
	prefix string
}

// NewRedisSource builds a redis-backed session source.
func NewRedisSource(r *persistence.Redis, prefix string) *RedisSource {
	return &RedisSource{redis: r, prefix: prefix}
}

func (s *RedisSource) Read(ctx context.Context) (StoredSession, error) {
	token, found, err := s.redis.Get(ctx, s.prefix+":token")
	if err != nil {
		return StoredSession{}, errorutil.NewNetworkFailure(0, "", err)
	}
	if !found {
		return StoredSession{}, errorutil.NewUnauthorized("no saved session, please sign in")
	}
	user, _, err := s.redis.Get(ctx, s.prefix+":user")
	if err != nil {
		return StoredSession{}, errorutil.NewNetworkFailure(0, "", err)
	}
	stored := StoredSession{Token: token}
	if user != "" {
		stored.User = []byte(user)
	}
	return stored, nil
}

// Loader turns a stored session into the SessionContext handed to the core.
type Loader struct {
	source Source
	norm   *normalize.Normalizer
	logger *zap.Logger
	now    func() time.Time
}

// NewLoader builds a session loader.
func NewLoader(source Source, norm *normalize.Normalizer, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{source: source, norm: norm, logger: logger, now: time.Now}
}

// Load reads the session once. A user record missing its id or role falls
// back to the token's sub and role claims; the role defaults to user.
func (l *Loader) Load(ctx context.Context) (domain.SessionContext, error) {
	stored, err := l.source.Read(ctx)
	if err != nil {
		return domain.SessionContext{}, err
	}
	info, err := CheckToken(stored.Token, l.now())
	if err != nil {
		return domain.SessionContext{}, err
	}

	var actor domain.Actor
	if len(stored.User) > 0 {
		actor, _ = l.norm.Actor(stored.User)
	}
	if actor.ID == "" {
		actor.ID = info.Subject
	}
	if actor.Name == "" {
		actor.Name = info.Name
	}
	if actor.Role == "" {
		actor.Role = domain.Role(info.Role)
	}
	if !actor.Role.Valid() {
		actor.Role = domain.RoleUser
	}
	if actor.ID == "" {
		return domain.SessionContext{}, errorutil.NewUnauthorized("saved session has no user, please sign in again")
	}

	l.logger.Debug("session loaded",
		zap.String("user_id", actor.ID),
		zap.String("role", string(actor.Role)),
		zap.Bool("jwt", info.JWT))
	return domain.SessionContext{Token: stored.Token, Actor: actor}, nil
}
