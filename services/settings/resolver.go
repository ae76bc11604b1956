package settings

import (
	"context"
	"fmt"
	"strings"

	"github.com/upb/gancio-sync/services"
	"go.uber.org/zap"
)

// Option names shared with the host platform's settings page
const (
	OptionInstanceURL = "wpgancio_instance_url"
	OptionToken       = "wpgancio_token"
)

// Scope is one level of configuration, e.g. site options or network options
type Scope interface {
	Lookup(ctx context.Context, key string) (string, bool, error)
}

// StaticScope serves values from memory. Used for environment defaults.
type StaticScope map[string]string

// Lookup implements Scope
func (s StaticScope) Lookup(_ context.Context, key string) (string, bool, error) {
	v, ok := s[key]
	return v, ok, nil
}

// Credentials identify the remote instance and authorize calls to it
type Credentials struct {
	BaseURL string
	Token   string
}

// Resolver reads a setting from an ordered list of scopes
type Resolver struct {
	scopes []Scope
	logger *zap.Logger
}

// NewResolver creates a resolver. Earlier scopes take precedence.
func NewResolver(logger *zap.Logger, scopes ...Scope) *Resolver {
	return &Resolver{scopes: scopes, logger: logger}
}

// First returns the first defined, non-empty value of key
func (r *Resolver) First(ctx context.Context, key string) (string, bool, error) {
	for i, scope := range r.scopes {
		value, ok, err := scope.Lookup(ctx, key)
		if err != nil {
			return "", false, services.WrapInternal(fmt.Sprintf("failed to read setting %s", key), err)
		}
		if ok && strings.TrimSpace(value) != "" {
			r.logger.Debug("setting resolved", zap.String("key", key), zap.Int("scope", i))
			return value, true, nil
		}
	}
	return "", false, nil
}

// Credentials resolves the instance URL and token. Returns a config_missing
// error when either is unset.
func (r *Resolver) Credentials(ctx context.Context) (*Credentials, error) {
	baseURL, ok, err := r.First(ctx, OptionInstanceURL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, services.ErrConfigMissing
	}

	token, ok, err := r.First(ctx, OptionToken)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, services.ErrConfigMissing
	}

	return &Credentials{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		Token:   strings.TrimSpace(token),
	}, nil
}
