package auth

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"

	"github.com/liftlog-app/liftlog/pkg"
)

const (
	DefaultTTL       = 24 * 7 * time.Hour
	sessionKeyPrefix = "liftlog-session||"
	tokensSetKey     = "liftlog-sessions"
)

var ErrWrongCredentials = errors.New("wrong credentials")

// Admin is the single account of a liftlog deployment. UserID is the opaque
// stable identifier that partitions remote workout data; the rest of the
// system never sees the credentials.
type Admin struct {
	UserID       string
	Username     string
	PasswordHash string
}

type Credentials struct {
	Username string
	Password string
}

type Service struct {
	admin       *Admin
	redisClient *redis.Client
	ttl         time.Duration
	events      *Events
	// ability to inject random string generator func for tokens (for unit and dev testing)
	RandStringFunc func(s int) (string, error)
}

func NewAuthService(
	admin *Admin,
	ttl time.Duration,
	redisClient *redis.Client,
	events *Events,
) *Service {
	return &Service{
		admin:          admin,
		ttl:            ttl,
		redisClient:    redisClient,
		events:         events,
		RandStringFunc: pkg.GenerateRandomString,
	}
}

// Login verifies the credentials, opens a token session and announces the
// user's presence on the auth event stream.
func (as *Service) Login(ctx context.Context, credentials Credentials, createdAt time.Time) (string, error) {
	if !pkg.CheckPasswordHash(credentials.Password, as.admin.PasswordHash) {
		log.Tracef("[password] failed login attempt for user: %s", credentials.Username)
		return "", ErrWrongCredentials
	}
	if credentials.Username != as.admin.Username {
		log.Tracef("[username] failed login attempt for user: %s", credentials.Username)
		return "", ErrWrongCredentials
	}

	token, err := as.RandStringFunc(35)
	if err != nil {
		return "", err
	}

	sessionKey := sessionKeyPrefix + token
	cmdSet := as.redisClient.Set(ctx, sessionKey, createdAt.Unix(), 0)
	if err := cmdSet.Err(); err != nil {
		return "", err
	}

	// add token to list of sessions
	cmdSAdd := as.redisClient.SAdd(ctx, tokensSetKey, token)
	if err := cmdSAdd.Err(); err != nil {
		return "", err
	}

	as.events.Publish(StateChange{UserID: as.admin.UserID})

	return token, nil
}

// Logout tears down the token session. When no session remains, announces
// "no user" on the auth event stream.
func (as *Service) Logout(ctx context.Context, token string) (bool, error) {
	sessionKey := sessionKeyPrefix + token
	cmd := as.redisClient.Get(ctx, sessionKey)
	if err := cmd.Err(); err != nil {
		return false, err
	}

	createdAtUnixStr := cmd.Val()
	createdAtUnix, err := strconv.ParseInt(createdAtUnixStr, 10, 64)
	if err != nil {
		return false, err
	}

	cmdSet := as.redisClient.Set(ctx, sessionKey, 0, 0)
	if err := cmdSet.Err(); err != nil {
		return false, err
	}

	// remove token from the list of sessions
	cmdSRem := as.redisClient.SRem(ctx, tokensSetKey, token)
	if err := cmdSRem.Err(); err != nil {
		return false, err
	}

	as.publishIfNoSessionsLeft(ctx)

	return createdAtUnix > 0, nil
}

// ScanAndClean will run through all sessions, check the TTL, and clean them if old
func (as *Service) ScanAndClean(ctx context.Context) {
	cmd := as.redisClient.SMembers(ctx, tokensSetKey)
	if err := cmd.Err(); err != nil {
		log.Errorf("!!! auth service, scan and clean, get sessions: %s", err)
		return
	}

	sessionTokens := cmd.Val()
	if len(sessionTokens) == 0 {
		log.Warnln("=> auth service, scan and clean abort, no sessions")
		return
	}

	log.Warnf("=> auth service, scan and clean [%d sessions] start ...", len(sessionTokens))
	var toRemove []string
	for _, token := range sessionTokens {
		sessionKey := sessionKeyPrefix + token
		cmd := as.redisClient.Get(ctx, sessionKey)
		if err := cmd.Err(); err != nil {
			log.Errorf("=> auth service, scan and clean token %s: %s", token, err)
			continue
		}

		createdAtUnixStr := cmd.Val()
		createdAtUnix, err := strconv.ParseInt(createdAtUnixStr, 10, 64)
		if err != nil {
			log.Errorf("=> auth service, scan and clean token %s: %s", token, err)
			continue
		}

		createdAt := time.Unix(createdAtUnix, 0)
		sessionDuration := time.Since(createdAt)
		if sessionDuration > as.ttl {
			log.Warnf("=>\twill clean the session with token: %s", token)
			toRemove = append(toRemove, token)
		}
	}

	for _, token := range toRemove {
		sessionKey := sessionKeyPrefix + token
		cmdDel := as.redisClient.Del(ctx, sessionKey)
		if err := cmdDel.Err(); err != nil {
			log.Errorf("=> auth service, clean token %s: %s", token, err)
			continue
		}
		cmdSRem := as.redisClient.SRem(ctx, tokensSetKey, token)
		if err := cmdSRem.Err(); err != nil {
			log.Errorf("=> auth service, clean token %s from sessions set: %s", token, err)
		}
	}

	if len(toRemove) > 0 {
		as.publishIfNoSessionsLeft(ctx)
	}

	log.Warnf("=> auth service, scan and clean done, %d sessions removed", len(toRemove))
}

func (as *Service) publishIfNoSessionsLeft(ctx context.Context) {
	cmdCard := as.redisClient.SCard(ctx, tokensSetKey)
	if err := cmdCard.Err(); err != nil {
		log.Errorf("auth service, count remaining sessions: %s", err)
		return
	}
	if cmdCard.Val() == 0 {
		as.events.Publish(StateChange{})
	}
}
