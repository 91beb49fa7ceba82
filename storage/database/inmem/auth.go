package inmemdb

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/darulhuda/madrasa/core/auth"
	"github.com/darulhuda/madrasa/core/student"
)

type identityProvider struct {
	db *DB
}

var _ auth.IdentityProvider = (*identityProvider)(nil)

func NewIdentityProvider(db *DB) auth.IdentityProvider {
	return &identityProvider{db: db}
}

// byEmail must be called with the lock held.
func (p *identityProvider) byEmail(email string) (identityRow, bool) {
	email = strings.ToLower(email)
	for _, row := range p.db.identities {
		if row.Email == email {
			return row, true
		}
	}
	return identityRow{}, false
}

func (p *identityProvider) SignIn(_ context.Context, email, secret string) (auth.Identity, error) {
	p.db.mu.RLock()
	row, ok := p.byEmail(email)
	p.db.mu.RUnlock()

	if !ok || bcrypt.CompareHashAndPassword([]byte(row.hash), []byte(secret)) != nil {
		return auth.Identity{}, auth.ErrRejected
	}
	return row.Identity, nil
}

func (p *identityProvider) CreateAccount(_ context.Context, email, secret, name string) (auth.Identity, error) {
	hash, err := auth.HashSecret(secret)
	if err != nil {
		return auth.Identity{}, err
	}

	p.db.mu.Lock()
	defer p.db.mu.Unlock()
	if _, ok := p.byEmail(email); ok {
		return auth.Identity{}, auth.ErrIdentityExists
	}
	row := identityRow{
		Identity: auth.Identity{UID: newID(), Email: strings.ToLower(email), Name: name},
		hash:     hash,
	}
	p.db.identities[row.UID] = row
	return row.Identity, nil
}

func (p *identityProvider) SetSecret(_ context.Context, email, secret string) error {
	hash, err := auth.HashSecret(secret)
	if err != nil {
		return err
	}

	p.db.mu.Lock()
	defer p.db.mu.Unlock()
	row, ok := p.byEmail(email)
	if !ok {
		return auth.ErrNotFound
	}
	row.hash = hash
	p.db.identities[row.UID] = row
	return nil
}

type directory struct {
	db *DB
}

var _ auth.Directory = (*directory)(nil)

func NewDirectory(db *DB) auth.Directory {
	return &directory{db: db}
}

func (d *directory) TeachersByEmail(_ context.Context, email string) ([]auth.RoleRecord, error) {
	d.db.mu.RLock()
	defer d.db.mu.RUnlock()

	recs := make([]auth.RoleRecord, 0)
	for _, rec := range d.db.teachers {
		if rec.Email == email {
			recs = append(recs, rec)
		}
	}
	return recs, nil
}

func (d *directory) studentsByMobile(kind, mobile string) []auth.RoleRecord {
	d.db.mu.RLock()
	defer d.db.mu.RUnlock()

	recs := make([]auth.RoleRecord, 0)
	for _, s := range d.db.students[kind] {
		if s.LoginMobile == mobile {
			recs = append(recs, auth.RoleRecord{
				ID:          s.ID,
				Name:        s.Name,
				Email:       s.Email,
				LoginMobile: s.LoginMobile,
				Secret:      s.Password,
				Class:       s.Class,
				Roll:        s.Roll,
			})
		}
	}
	return recs
}

func (d *directory) NuraniStudentsByMobile(_ context.Context, mobile string) ([]auth.RoleRecord, error) {
	return d.studentsByMobile(student.KindNurani, mobile), nil
}

func (d *directory) StudentsByMobile(_ context.Context, mobile string) ([]auth.RoleRecord, error) {
	return d.studentsByMobile(student.KindGeneral, mobile), nil
}

func (d *directory) TeacherExists(_ context.Context, uid string) (bool, error) {
	d.db.mu.RLock()
	defer d.db.mu.RUnlock()
	_, ok := d.db.teachers[uid]
	return ok, nil
}

func (d *directory) Profile(_ context.Context, uid string) (auth.Profile, error) {
	d.db.mu.RLock()
	defer d.db.mu.RUnlock()
	if p, ok := d.db.profiles[uid]; ok {
		return p, nil
	}
	return auth.Profile{}, auth.ErrNotFound
}

func (d *directory) SaveProfile(_ context.Context, p auth.Profile) error {
	d.db.mu.Lock()
	defer d.db.mu.Unlock()
	if old, ok := d.db.profiles[p.UID]; ok {
		p.CreatedAt = old.CreatedAt
	}
	d.db.profiles[p.UID] = p
	return nil
}

func (d *directory) Admin(_ context.Context, uid string) (auth.AdminRecord, error) {
	d.db.mu.RLock()
	defer d.db.mu.RUnlock()
	if a, ok := d.db.admins[uid]; ok {
		return a, nil
	}
	return auth.AdminRecord{}, auth.ErrNotFound
}

func (d *directory) AdminByEmail(_ context.Context, email string) (auth.AdminRecord, error) {
	d.db.mu.RLock()
	defer d.db.mu.RUnlock()
	for _, a := range d.db.admins {
		if a.Email == email {
			return a, nil
		}
	}
	return auth.AdminRecord{}, auth.ErrNotFound
}

func (d *directory) SaveAdmin(_ context.Context, a auth.AdminRecord) error {
	d.db.mu.Lock()
	defer d.db.mu.Unlock()
	if old, ok := d.db.admins[a.UID]; ok {
		a.CreatedAt = old.CreatedAt
	}
	d.db.admins[a.UID] = a
	return nil
}
