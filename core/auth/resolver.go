package auth

import (
	"context"

	"github.com/pkg/errors"

	"github.com/darulhuda/madrasa/core"
)

// Resolver assigns exactly one role to an authenticated user.
type Resolver struct {
	dir    Directory
	logger core.Logger
}

func NewResolver(dir Directory, logger core.Logger) *Resolver {
	return &Resolver{dir: dir, logger: logger}
}

// Resolve never fails: lookup errors are logged and resolution falls through to "student".
func (r *Resolver) Resolve(ctx context.Context, res Result) Principal {
	if res.Source != SourceProvider {
		return Principal{
			ID:     res.Record.ID,
			Name:   res.Record.Name,
			Email:  res.Record.Email,
			Role:   RoleForSource(res.Source),
			Source: res.Source,
			Class:  res.Record.Class,
			Roll:   res.Record.Roll,
		}
	}

	p := Principal{
		ID:     res.Identity.UID,
		Name:   res.Identity.Name,
		Email:  res.Identity.Email,
		Source: SourceProvider,
	}
	p.Role = r.providerRole(ctx, res.Identity.UID, &p)
	return p
}

func (r *Resolver) providerRole(ctx context.Context, uid string, p *Principal) string {
	// users/{uid}.role is authoritative when set
	prof, err := r.dir.Profile(ctx, uid)
	switch {
	case err == nil:
		if p.Name == "" {
			p.Name = prof.Name
		}
		if prof.Role != "" {
			return prof.Role
		}
	case errors.Cause(err) != ErrNotFound:
		r.logger.Warn("resolving role: reading profile", errors.Wrap(err, uid))
	}

	if _, err := r.dir.Admin(ctx, uid); err == nil {
		return RoleAdmin
	} else if errors.Cause(err) != ErrNotFound {
		r.logger.Warn("resolving role: reading admin", errors.Wrap(err, uid))
	}

	if ok, err := r.dir.TeacherExists(ctx, uid); err != nil {
		r.logger.Warn("resolving role: reading teacher", errors.Wrap(err, uid))
	} else if ok {
		return RoleTeacher
	}

	return RoleStudent
}
