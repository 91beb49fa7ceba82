// Package inmemdb implements the repositories of the app in memory, for tests & local development.
package inmemdb

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/darulhuda/madrasa/core/admission"
	"github.com/darulhuda/madrasa/core/attendance"
	"github.com/darulhuda/madrasa/core/auth"
	"github.com/darulhuda/madrasa/core/contact"
	"github.com/darulhuda/madrasa/core/notice"
	"github.com/darulhuda/madrasa/core/student"
)

type identityRow struct {
	auth.Identity
	hash string
}

// DB holds every collection. Repositories share its lock.
type DB struct {
	mu sync.RWMutex

	identities map[string]identityRow // {uid: row}
	profiles   map[string]auth.Profile
	admins     map[string]auth.AdminRecord
	teachers   map[string]auth.RoleRecord
	students   map[string]map[string]student.Student // {kind: {id: student}}
	notices    map[string]notice.Notice
	admissions map[string]admission.Admission
	contacts   []contact.Message
	sheets     map[string]attendance.Sheet
	summaries  map[string]attendance.Summary // {class|date: summary}
}

func NewDB() *DB {
	return &DB{
		identities: make(map[string]identityRow),
		profiles:   make(map[string]auth.Profile),
		admins:     make(map[string]auth.AdminRecord),
		teachers:   make(map[string]auth.RoleRecord),
		students: map[string]map[string]student.Student{
			student.KindGeneral: make(map[string]student.Student),
			student.KindNurani:  make(map[string]student.Student),
		},
		notices:    make(map[string]notice.Notice),
		admissions: make(map[string]admission.Admission),
		sheets:     make(map[string]attendance.Sheet),
		summaries:  make(map[string]attendance.Summary),
	}
}

func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// AddTeacher inserts a document in the teachers collection; an ID is generated when empty.
func (db *DB) AddTeacher(rec auth.RoleRecord) auth.RoleRecord {
	db.mu.Lock()
	defer db.mu.Unlock()
	if rec.ID == "" {
		rec.ID = newID()
	}
	db.teachers[rec.ID] = rec
	return rec
}

// Reset empties every collection.
func (db *DB) Reset() {
	fresh := NewDB()
	db.mu.Lock()
	defer db.mu.Unlock()
	db.identities = fresh.identities
	db.profiles = fresh.profiles
	db.admins = fresh.admins
	db.teachers = fresh.teachers
	db.students = fresh.students
	db.notices = fresh.notices
	db.admissions = fresh.admissions
	db.contacts = fresh.contacts
	db.sheets = fresh.sheets
	db.summaries = fresh.summaries
}
